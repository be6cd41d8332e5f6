package streams

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	supervisorMaxFails    = 5
	supervisorFastFailSec = 5.0
	supervisorMaxBackoff  = 30 * time.Second
	supervisorBackoffOK   = 30 * time.Second // a run this long or longer resets backoff/fail tracking
	supervisorInitBackoff = 500 * time.Millisecond
	sigtermGrace          = 3 * time.Second
)

// newExponentialBackoff builds the restart backoff policy: doubles from
// supervisorInitBackoff up to supervisorMaxBackoff, no cap on total elapsed
// time (the supervisor itself enforces the fast-fail budget).
func newExponentialBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = supervisorInitBackoff
	b.MaxInterval = supervisorMaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return b
}

// Supervisor keeps a single subprocess (a stream's player binary) alive,
// restarting it with exponential backoff until it either stabilizes or
// crash-loops past supervisorMaxFails fast failures. Safe for concurrent
// Start/Stop/Pid/FailCount calls.
type Supervisor struct {
	name     string
	buildCmd func() *exec.Cmd

	maxFails    int
	fastFailSec float64
	maxBackoff  time.Duration

	mu         sync.Mutex
	currentPID int
	backoff    *backoff.ExponentialBackOff
	failCount  int
	stopCh     chan struct{}
	doneCh     chan struct{}
	running    bool
}

// NewSupervisor wires buildCmd (invoked fresh on every restart attempt,
// since exec.Cmd is single-use) under the default restart policy.
func NewSupervisor(name string, buildCmd func() *exec.Cmd) *Supervisor {
	return &Supervisor{
		name:        name,
		buildCmd:    buildCmd,
		maxFails:    supervisorMaxFails,
		fastFailSec: supervisorFastFailSec,
		maxBackoff:  supervisorMaxBackoff,
		backoff:     newExponentialBackoff(),
	}
}

// Start launches the subprocess and its supervising goroutine. ctx
// cancellation stops supervision and kills the process group. A no-op if
// already running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.failCount = 0
	s.backoff.Reset()
	s.running = true
	go s.run(ctx)
	return nil
}

// Stop signals the supervising goroutine to kill the process group and
// exit, and waits for it to do so. A no-op if not running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(10 * time.Second):
		slog.Warn("supervisor stop timed out", "name", s.name)
	}
	return nil
}

// Pid returns the current process PID, or 0 if nothing is running.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPID
}

// FailCount returns the current fast-fail streak, for diagnostics.
func (s *Supervisor) FailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failCount
}

// run is the supervising goroutine body: build, start, wait, decide whether
// to restart, repeat until told to stop or the fail budget is exhausted.
func (s *Supervisor) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.currentPID = 0
		doneCh := s.doneCh
		s.mu.Unlock()
		close(doneCh)
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.mu.Lock()
		fails := s.failCount
		s.mu.Unlock()
		if fails >= s.maxFails {
			slog.Error("supervisor giving up after too many fast-fails", "name", s.name, "fails", fails)
			return
		}

		cmd := s.buildCmd()
		if cmd == nil {
			slog.Error("supervisor: buildCmd returned nil", "name", s.name)
			return
		}
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		startedAt := time.Now()
		slog.Info("supervisor: starting process", "name", s.name, "cmd", cmd.Path)

		if err := cmd.Start(); err != nil {
			if isNotFoundError(err) {
				slog.Error("supervisor: binary not found, giving up", "name", s.name, "cmd", cmd.Path, "err", err)
				return
			}
			slog.Error("supervisor: failed to start process", "name", s.name, "err", err)
			wait := s.recordFailure()
			s.sleepOrStop(ctx, wait)
			continue
		}

		pid := cmd.Process.Pid
		s.mu.Lock()
		s.currentPID = pid
		s.mu.Unlock()
		slog.Info("supervisor: process running", "name", s.name, "pid", pid)

		exitCh := make(chan error, 1)
		go func() { exitCh <- cmd.Wait() }()

		var exitErr error
		select {
		case exitErr = <-exitCh:
		case <-s.stopCh:
			s.killProcessGroup(pid)
			<-exitCh
			return
		case <-ctx.Done():
			s.killProcessGroup(pid)
			<-exitCh
			return
		}

		elapsed := time.Since(startedAt)
		slog.Info("supervisor: process exited", "name", s.name, "pid", pid, "elapsed", elapsed, "err", exitErr)

		wait := s.recordExit(elapsed)
		if wait > 0 {
			s.sleepOrStop(ctx, wait)
		}
	}
}

// recordFailure counts a failed start attempt and advances the exponential
// backoff, returning the duration to wait before retrying.
func (s *Supervisor) recordFailure() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCount++
	return nextBackoff(s.backoff, s.maxBackoff)
}

// recordExit updates fail tracking after a process exit based on how long
// it ran, returning the duration to wait before the next restart.
func (s *Supervisor) recordExit(elapsed time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPID = 0

	switch {
	case elapsed >= supervisorBackoffOK:
		s.failCount = 0
		s.backoff.Reset()
		return 0
	case elapsed.Seconds() < s.fastFailSec:
		s.failCount++
		return nextBackoff(s.backoff, s.maxBackoff)
	default:
		s.failCount = 0
		return nextBackoff(s.backoff, s.maxBackoff)
	}
}

// nextBackoff advances b and clamps the result to max, since
// ExponentialBackOff.MaxInterval only bounds the interval it grows the
// generator *toward*, not an individual NextBackOff() result during the
// randomization jitter window.
func nextBackoff(b *backoff.ExponentialBackOff, max time.Duration) time.Duration {
	d := b.NextBackOff()
	if d == backoff.Stop || d > max {
		return max
	}
	return d
}

// killProcessGroup sends SIGTERM to the process group, waits sigtermGrace
// for it to exit, then escalates to SIGKILL.
func (s *Supervisor) killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	slog.Debug("supervisor: sending SIGTERM to process group", "pid", pid)
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		deadline := time.Now().Add(sigtermGrace)
		for time.Now().Before(deadline) {
			if syscall.Kill(-pid, 0) != nil {
				close(done)
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(sigtermGrace + 100*time.Millisecond):
		slog.Warn("supervisor: SIGTERM timed out, sending SIGKILL", "pid", pid)
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}

// sleepOrStop sleeps for d, returning early if stop is requested or ctx ends.
func (s *Supervisor) sleepOrStop(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-s.stopCh:
	case <-ctx.Done():
	}
}

// isNotFoundError reports whether err indicates the target binary doesn't
// exist (as opposed to some other start failure worth retrying).
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "executable file not found") ||
		strings.Contains(msg, "no such file or directory")
}
