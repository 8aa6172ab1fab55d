// Package daemon tracks the headless instance through a PID file and relays
// pause requests to it as signals.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nathfavour/flora/pkg/pause"
	"go.uber.org/zap"
)

// Signals understood by a running instance.
const (
	PauseSignal  = syscall.SIGUSR1
	ResumeSignal = syscall.SIGUSR2
)

// ErrNotRunning means no live process owns the PID file.
var ErrNotRunning = errors.New("flora is not running")

// PIDFile manages one PID file path.
type PIDFile string

// Running returns the PID of the live owner, if any.
func (f PIDFile) Running() (int, bool) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

// Write records the current process, refusing if another live instance
// already owns the file.
func (f PIDFile) Write() error {
	if pid, ok := f.Running(); ok && pid != os.Getpid() {
		return fmt.Errorf("flora already running with pid %d", pid)
	}
	return os.WriteFile(string(f), []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (f PIDFile) Remove() error {
	err := os.Remove(string(f))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Send delivers sig to the running instance.
func (f PIDFile) Send(sig os.Signal) error {
	pid, ok := f.Running()
	if !ok {
		return ErrNotRunning
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(sig)
}

// RequestPause asks the running instance to pause (or resume).
func (f PIDFile) RequestPause(paused bool) error {
	if paused {
		return f.Send(PauseSignal)
	}
	return f.Send(ResumeSignal)
}

// Relay applies pause/resume signals to c until ctx is done. The handler
// is installed before Relay returns; the returned channel closes once it is
// removed again.
func Relay(ctx context.Context, c *pause.Controller, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, PauseSignal, ResumeSignal)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				paused := sig == PauseSignal
				c.Set(paused)
				logger.Info("Pause state changed by signal", zap.String("signal", sig.String()), zap.Bool("paused", paused))
			}
		}
	}()
	return done
}
