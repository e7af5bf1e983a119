package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	ini "gopkg.in/ini.v1"

	"github.com/majerti/runbackup/pkg/errors"
)

const (
	// ConfigFileName is the name of the backup configuration file. It's
	// searched for in the XDG config directories, and then in the user's home
	// directory.
	ConfigFileName = "runbackup.rc"

	// DefaultSection is the section read when `--section` isn't given.
	DefaultSection = "main_backup"

	// MailSection is the section holding the SMTP settings. It's only
	// required when `mailto` is set in the backup section.
	MailSection = "mail"

	// DefaultSMTPRelay is the SMTP relay used when the mail section doesn't
	// name one.
	DefaultSMTPRelay = "smtp"
)

// Mail contains the settings for the optional run summary emails.
type Mail struct {
	To       string `json:"to"`
	From     string `json:"from"`
	SMTPAddr string `json:"smtpAddr"`
}

// RunContext contains everything needed for one backup run. It's constructed
// once from the configuration file and read-only afterwards.
type RunContext struct {
	Section     string `json:"section"`
	Host        string `json:"host"`
	SrcDir      string `json:"srcDir"`
	DstDir      string `json:"dstDir"`
	LogBase     string `json:"logbase"`
	TimeoutSecs int    `json:"timeoutSecs,omitempty"`
	Mail        *Mail  `json:"mail,omitempty"`
}

// Timeout returns the configured wall-clock limit for the rsync run.
// Zero means no limit.
func (ctx RunContext) Timeout() time.Duration {
	return time.Duration(ctx.TimeoutSecs) * time.Second
}

// TaskDesc describes the run for log lines and mail subjects.
func (ctx RunContext) TaskDesc() string {
	return fmt.Sprintf("backup of %s:%s on %s", ctx.Host, ctx.SrcDir, ctx.DstDir)
}

// Mocked for unit testing.
var (
	getenv     = os.Getenv
	homedirDir = homedir.Dir
)

// Parse reads the configuration file and builds the RunContext for the given
// section.
func Parse(section string) (RunContext, error) {
	path, err := findConfigFile()
	if err != nil {
		return RunContext{}, err
	}

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return RunContext{}, errors.WithContext(err, "read config")
	}

	file, err := ini.Load(contents)
	if err != nil {
		return RunContext{}, errors.WithContext(err, fmt.Sprintf("parse %q", path))
	}

	sec, err := file.GetSection(section)
	if err != nil {
		return RunContext{}, errors.MissingSectionError{Section: section, Path: path}
	}

	ctx := RunContext{Section: section}
	for _, key := range []struct {
		name  string
		field *string
	}{
		{"host", &ctx.Host},
		{"src_dir", &ctx.SrcDir},
		{"dst_dir", &ctx.DstDir},
		{"logbase", &ctx.LogBase},
	} {
		if !sec.HasKey(key.name) || sec.Key(key.name).String() == "" {
			return RunContext{}, errors.MissingFieldError{Field: key.name, Section: section}
		}
		*key.field = sec.Key(key.name).String()
	}

	if timeoutStr := sec.Key("timeout_secs").String(); timeoutStr != "" {
		timeout, err := strconv.Atoi(timeoutStr)
		if err != nil || timeout <= 0 {
			return RunContext{}, errors.NewFriendlyError(
				"timeout_secs in section %q must be a positive integer, got %q",
				section, timeoutStr)
		}
		ctx.TimeoutSecs = timeout
	}

	ctx.Mail, err = parseMail(file, sec, path)
	if err != nil {
		return RunContext{}, err
	}

	ctx.DstDir, err = homedir.Expand(ctx.DstDir)
	if err != nil {
		return RunContext{}, errors.WithContext(err, "expand dst_dir")
	}
	ctx.LogBase, err = homedir.Expand(ctx.LogBase)
	if err != nil {
		return RunContext{}, errors.WithContext(err, "expand logbase")
	}

	// rsync treats a path with and without a trailing slash differently, so
	// normalize both sides before building the command.
	ctx.SrcDir = ensureTrailingSlash(ctx.SrcDir)
	ctx.DstDir = ensureTrailingSlash(ctx.DstDir)
	return ctx, nil
}

// parseMail builds the mail settings if `mailto` is set in the backup
// section. `mailfrom` may live in either the backup section or the mail
// section, with the backup section taking precedence.
func parseMail(file *ini.File, sec *ini.Section, path string) (*Mail, error) {
	mailto := sec.Key("mailto").String()
	if mailto == "" {
		return nil, nil
	}

	mailSec, err := file.GetSection(MailSection)
	if err != nil {
		return nil, errors.MissingSectionError{Section: MailSection, Path: path}
	}

	mailfrom := sec.Key("mailfrom").String()
	if mailfrom == "" {
		mailfrom = mailSec.Key("mailfrom").String()
	}
	if mailfrom == "" {
		return nil, errors.MissingFieldError{Field: "mailfrom", Section: MailSection}
	}

	smtpAddr := mailSec.Key("smtp").String()
	if smtpAddr == "" {
		smtpAddr = DefaultSMTPRelay
	}
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":25"
	}

	return &Mail{To: mailto, From: mailfrom, SMTPAddr: smtpAddr}, nil
}

// findConfigFile locates the configuration file, scanning the XDG config
// directories and then the user's home directory. If no candidate exists, the
// returned error names every path that was examined.
func findConfigFile() (string, error) {
	var candidates []string
	for _, dir := range configDirs() {
		candidate := filepath.Join(dir, ConfigFileName)
		candidates = append(candidates, candidate)
		if exists, err := afero.Exists(fs, candidate); err == nil && exists {
			return candidate, nil
		}
	}
	return "", errors.NoConfigFileError{Candidates: candidates}
}

func configDirs() []string {
	var dirs []string

	home, homeErr := homedirDir()

	if xdgHome := getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		dirs = append(dirs, xdgHome)
	} else if homeErr == nil {
		dirs = append(dirs, filepath.Join(home, ".config"))
	}

	xdgDirs := getenv("XDG_CONFIG_DIRS")
	if xdgDirs == "" {
		xdgDirs = "/etc/xdg"
	}
	for _, dir := range strings.Split(xdgDirs, ":") {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}

	if homeErr == nil {
		dirs = append(dirs, home)
	}
	return dirs
}

func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
