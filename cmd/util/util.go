package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/majerti/runbackup/pkg/errors"
)

// FatalErrorExitCode is returned for fatal errors outside a completed run,
// configuration errors included. The codes 0-3 are reserved for run
// outcomes.
const FatalErrorExitCode = 4

// Mocked for unit testing.
var exit = os.Exit

// HandleFatalError prints the user-facing message for err and exits.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	exit(FatalErrorExitCode)
}

// HandlePanic recovers from a panic, logs it with a stack trace, and exits
// nonzero. It's meant to be deferred from main.
func HandlePanic() {
	if r := recover(); r != nil {
		log.Errorf("panicked: %v\n%s", r, debug.Stack())
		exit(FatalErrorExitCode)
	}
}
