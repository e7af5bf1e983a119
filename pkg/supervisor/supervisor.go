// Package supervisor spawns the rsync subprocess, relays termination signals
// to it, enforces the optional wall-clock timeout, and records the exit code.
package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/majerti/runbackup/pkg/errors"
)

// relaySignals are forwarded to the child for the duration of its lifetime.
// SIGKILL can't be intercepted, so it's not in the list.
var relaySignals = []os.Signal{
	os.Interrupt,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGTERM,
}

// Mocked for unit testing.
var newCommand = func(args []string) *exec.Cmd {
	return exec.Command(args[0], args[1:]...)
}

// Supervisor runs one rsync invocation. The three handles are owned
// exclusively by the supervisor and are closed exactly once, whichever way
// the wait ends.
type Supervisor struct {
	Host   string
	SrcDir string
	DstDir string

	// Timeout is the wall-clock limit for the run. Zero means no limit.
	Timeout time.Duration

	Stdout io.WriteCloser
	Stderr io.WriteCloser
	Ret    io.WriteCloser

	Log *log.Logger

	// Clock defaults to the real clock. Tests inject a fake one.
	Clock clockwork.Clock

	closeOnce sync.Once
}

// Args returns the exact rsync argument list for the run. The configured
// values are placed directly as arguments, never shell-interpreted.
func (sup *Supervisor) Args() []string {
	return []string{
		"rsync",
		"-avz",
		"--delete",
		fmt.Sprintf("%s:%s", sup.Host, sup.SrcDir),
		sup.DstDir,
	}
}

// Run executes rsync and returns the outcome of the run. A returned error
// means the run failed in a way that has no exit code (e.g. rsync couldn't
// be started); the handles are still closed and the caller should treat the
// outcome as Failure.
func (sup *Supervisor) Run() (Outcome, error) {
	defer sup.closeHandles()

	args := sup.Args()
	cmd := newCommand(args)
	cmd.Stdout = sup.Stdout
	cmd.Stderr = sup.Stderr

	sup.Log.Infof("running command %s", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return Failure, errors.WithContext(err, "start rsync")
	}

	// The relay goroutine lives only as long as the child. stopRelay is
	// invoked both inline and via defer so the handlers are torn down even
	// if the wait fails unexpectedly.
	var relayed int32
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, relaySignals...)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for sig := range sigCh {
			atomic.StoreInt32(&relayed, 1)
			sup.relay(cmd.Process, sig)
		}
	}()

	var stopOnce sync.Once
	stopRelay := func() {
		signal.Stop(sigCh)
		close(sigCh)
		<-relayDone
	}
	defer stopOnce.Do(stopRelay)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	expired := false
	var waitErr error
	if sup.Timeout <= 0 {
		waitErr = <-done
	} else {
		sup.Log.Infof("setting up alarm clock: we'll stop in %s max", sup.Timeout)
		select {
		case waitErr = <-done:
		case <-sup.clock().After(sup.Timeout):
			expired = true
			sup.Log.Errorf("time expired, interrupting process %d with ^C", cmd.Process.Pid)
			sup.relay(cmd.Process, os.Interrupt)

			// The child is expected to honor the interrupt; wait for its
			// real termination rather than force-killing it.
			waitErr = <-done
		}
	}

	stopOnce.Do(stopRelay)

	code := 0
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			// A fired deadline still labels the run time-expired, even when
			// the wait itself failed.
			if expired {
				return TimeExpired, errors.WithContext(waitErr, "wait for rsync")
			}
			return Failure, errors.WithContext(waitErr, "wait for rsync")
		}
		code = exitErr.ExitCode()
	}

	outcome := Success
	switch {
	case expired:
		outcome = TimeExpired
	case code == 0:
		outcome = Success
	case atomic.LoadInt32(&relayed) == 1:
		outcome = Interrupted
	default:
		outcome = Failure
	}

	if _, err := fmt.Fprintf(sup.Ret, "%d\n", code); err != nil {
		sup.Log.WithError(err).Error("failed to record return code")
	}

	logfn := sup.Log.Infof
	if outcome != Success {
		logfn = sup.Log.Errorf
	}
	logfn("%s exited with status %d", args[0], code)

	sup.closeHandles()
	return outcome, nil
}

// relay forwards sig to the child. Errors (e.g. the child is already gone)
// are logged and swallowed: after a relay attempt the only useful thing left
// to do is keep logging working.
func (sup *Supervisor) relay(proc *os.Process, sig os.Signal) {
	sup.Log.Infof("got signal %s, propagating to process %d", sig, proc.Pid)
	if err := proc.Signal(sig); err != nil {
		sup.Log.WithError(err).Errorf("error while signalling process %d", proc.Pid)
	}
}

// closeHandles closes the three log handles exactly once.
func (sup *Supervisor) closeHandles() {
	sup.closeOnce.Do(func() {
		for _, handle := range []io.Closer{sup.Stdout, sup.Stderr, sup.Ret} {
			if err := handle.Close(); err != nil {
				sup.Log.WithError(err).Error("failed to close log handle")
			}
		}
	})
}

func (sup *Supervisor) clock() clockwork.Clock {
	if sup.Clock == nil {
		return clockwork.NewRealClock()
	}
	return sup.Clock
}
