package supervisor

import (
	"os/exec"
	"regexp"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
)

// minRsyncVersion is the oldest rsync known to handle the argument list we
// build. Older versions only get a warning; the run still proceeds.
var minRsyncVersion = goversion.Must(goversion.NewVersion("2.6.0"))

var rsyncVersionRegexp = regexp.MustCompile(`rsync +version +v?(\d+\.\d+(?:\.\d+)?)`)

// Mocked for unit testing.
var rsyncVersionOutput = func() ([]byte, error) {
	return exec.Command("rsync", "--version").Output()
}

// CheckRsyncVersion warns when the local rsync is missing, unparseable, or
// older than the minimum supported version. It never fails the run.
func CheckRsyncVersion(logger *log.Logger) {
	out, err := rsyncVersionOutput()
	if err != nil {
		logger.WithError(err).Warn("failed to query rsync version")
		return
	}

	match := rsyncVersionRegexp.FindSubmatch(out)
	if match == nil {
		logger.Warn("couldn't parse rsync version output")
		return
	}

	curr, err := goversion.NewVersion(string(match[1]))
	if err != nil {
		logger.WithError(err).Warn("couldn't parse rsync version")
		return
	}

	if curr.LessThan(minRsyncVersion) {
		logger.Warnf("rsync %s is older than the minimum supported version %s",
			curr, minRsyncVersion)
	}
}
