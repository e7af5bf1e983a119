// Package logdir creates the per-run artifact directory and opens the log
// files that the run writes into.
package logdir

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/majerti/runbackup/pkg/errors"
)

const (
	// OutName holds the child's stdout.
	OutName = "rsync_out"

	// ErrName holds the child's stderr.
	ErrName = "rsync_err"

	// RetName holds the child's exit code, as a decimal integer followed by
	// a newline.
	RetName = "rsync_ret"

	// LogName holds the orchestrator's own log.
	LogName = "runbackup.log"
)

// Mocked for unit testing.
var (
	fs  = afero.NewOsFs()
	now = time.Now
)

// RunDir is the per-run artifact directory. The three rsync handles are
// owned exclusively by the supervisor until it closes them; after that the
// files may be read by the mail notifier.
type RunDir struct {
	Path string

	OutPath string
	ErrPath string
	RetPath string
	LogPath string

	Out afero.File
	Err afero.File
	Ret afero.File
	Log afero.File
}

// Create builds the directory `<logbase>/<year>/<month>/<day>/<h>_<m>_<s>.<µs>/`
// and opens the four log files inside it.
func Create(logbase string) (*RunDir, error) {
	t := now()
	dir := filepath.Join(
		logbase,
		strconv.Itoa(t.Year()),
		strconv.Itoa(int(t.Month())),
		strconv.Itoa(t.Day()),
		fmt.Sprintf("%d_%d_%d.%d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000),
	)

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithContext(err, "create run directory")
	}

	runDir := &RunDir{
		Path:    dir,
		OutPath: filepath.Join(dir, OutName),
		ErrPath: filepath.Join(dir, ErrName),
		RetPath: filepath.Join(dir, RetName),
		LogPath: filepath.Join(dir, LogName),
	}

	var err error
	for _, f := range []struct {
		path string
		file *afero.File
	}{
		{runDir.OutPath, &runDir.Out},
		{runDir.ErrPath, &runDir.Err},
		{runDir.RetPath, &runDir.Ret},
		{runDir.LogPath, &runDir.Log},
	} {
		if *f.file, err = fs.Create(f.path); err != nil {
			return nil, errors.WithContext(err, fmt.Sprintf("create %q", f.path))
		}
	}
	return runDir, nil
}
