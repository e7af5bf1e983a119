// Package run implements `runbackup run`, which performs one backup run:
// load the config, create the run directory, supervise rsync, and send the
// summary mail.
package run

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/majerti/runbackup/cmd/util"
	"github.com/majerti/runbackup/pkg/config"
	"github.com/majerti/runbackup/pkg/errors"
	"github.com/majerti/runbackup/pkg/logdir"
	"github.com/majerti/runbackup/pkg/mail"
	"github.com/majerti/runbackup/pkg/supervisor"
)

// Mocked for unit testing.
var (
	exit        = os.Exit
	parseConfig = config.Parse
)

// New creates a new `run` command.
func New() *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rsync backup and log all data",
		Run: func(_ *cobra.Command, _ []string) {
			exit(Main(section))
		},
	}
	cmd.Flags().StringVar(&section, "section", config.DefaultSection,
		"The config file section describing the backup to run.")
	return cmd
}

// Main performs the run and returns the process exit code.
func Main(section string) int {
	ctx, err := parseConfig(section)
	if err != nil {
		// No log directory exists yet, so the error can only go to stderr.
		fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
		return util.FatalErrorExitCode
	}

	runDir, err := logdir.Create(ctx.LogBase)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
		return util.FatalErrorExitCode
	}

	logger := newRunLogger(runDir.Log)
	defer runDir.Log.Close()

	logger.Infof("log goes to %s", runDir.LogPath)
	logger.Infof("stdout goes to %s", runDir.OutPath)
	logger.Infof("stderr goes to %s", runDir.ErrPath)
	logger.Infof("return code goes to %s", runDir.RetPath)

	supervisor.CheckRsyncVersion(logger)

	var notifier *mail.Notifier
	var thread mail.Thread
	if ctx.Mail != nil {
		notifier = &mail.Notifier{Config: *ctx.Mail, Log: logger}
		thread, err = notifier.Send(
			fmt.Sprintf("[starting] %s", ctx.TaskDesc()),
			fmt.Sprintf("starting %s\n", ctx.TaskDesc()),
			nil, thread)
		if err != nil {
			logger.WithError(err).Error("failed to send startup notice")
		}
	}

	sup := &supervisor.Supervisor{
		Host:    ctx.Host,
		SrcDir:  ctx.SrcDir,
		DstDir:  ctx.DstDir,
		Timeout: ctx.Timeout(),
		Stdout:  runDir.Out,
		Stderr:  runDir.Err,
		Ret:     runDir.Ret,
		Log:     logger,
	}

	outcome, err := sup.Run()
	if err != nil {
		// The run is over either way; the supervisor already classified it
		// (failure, or time-expired if the deadline had fired), so just log
		// the error and let the mail notification go out.
		logger.WithError(err).Error("an error or interruption occurred")
	}

	if notifier != nil {
		subject := fmt.Sprintf("[%s] %s", outcome, ctx.TaskDesc())
		body := fmt.Sprintf("%s\nreturncode of rsync was %s\n",
			subject, mail.ReadReturnCode(runDir.RetPath))
		attachments := []mail.Attachment{
			{Name: "stdout.txt", Path: runDir.OutPath},
			{Name: "stderr.txt", Path: runDir.ErrPath},
			{Name: "runbackup.txt", Path: runDir.LogPath},
		}
		if _, err := notifier.Send(subject, body, attachments, thread); err != nil {
			logger.WithError(err).Error("failed to send summary mail")
		}
	}

	return outcome.ExitCode()
}

// newRunLogger builds the logger for one run. It writes to both stdout and
// the run's log file, and is handed explicitly to the supervisor and
// notifier rather than registered globally.
func newRunLogger(logFile io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	logger.SetLevel(log.GetLevel())
	return logger
}
