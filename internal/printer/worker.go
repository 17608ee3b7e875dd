package printer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Supervisor owns the single persistent worker subprocess that holds the
// serial port open. It moves the worker through
// Absent -> Starting -> Ready -> (Absent | Failed) and enforces the
// invariants that at most one worker exists at a time and that no job is
// submitted before the worker has acknowledged readiness.
type Supervisor struct {
	cfg     Config
	spawner Spawner
	reset   *ResetSequencer
	probe   DeviceProbe
	logger  *log.Logger

	// mu serializes all lifecycle operations; state is read lock-free by
	// the status reporter.
	mu     sync.Mutex
	state  atomic.Int32
	worker WorkerHandle
	gen    uint64
}

// NewSupervisor creates a supervisor. The worker is spawned lazily on the
// first EnsureReady call.
func NewSupervisor(cfg Config, spawner Spawner, reset *ResetSequencer, probe DeviceProbe, logger *log.Logger) *Supervisor {
	s := &Supervisor{
		cfg:     cfg,
		spawner: spawner,
		reset:   reset,
		probe:   probe,
		logger:  logger,
	}
	s.state.Store(int32(StateAbsent))
	return s
}

// State returns the current worker state without blocking on in-flight
// operations.
func (s *Supervisor) State() WorkerState {
	return WorkerState(s.state.Load())
}

// Ready reports whether the worker has emitted its boot acknowledgement.
func (s *Supervisor) Ready() bool {
	return s.State() == StateReady
}

// EnsureReady makes sure a ready worker exists. When the worker is already
// Ready this is an idempotent no-op, which is the common path. Otherwise any
// existing process is terminated, a full reset episode runs unconditionally,
// and a fresh worker is spawned and awaited.
func (s *Supervisor) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateReady && s.worker != nil {
		return nil
	}

	s.discardLocked()
	s.state.Store(int32(StateStarting))

	// Reset runs unconditionally: a present device node does not prove the
	// RFCOMM channel is live.
	if err := s.reset.Run(ctx); err != nil {
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("reset before worker start: %w", err)
	}
	if !s.probe.DeviceExists() {
		s.state.Store(int32(StateFailed))
		return ErrDeviceUnavailable
	}

	w, err := s.spawner.Spawn(ctx)
	if err != nil {
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}
	s.gen++
	s.worker = w
	go s.watchExit(s.gen, w)

	if err := s.awaitReadyLocked(ctx, w); err != nil {
		s.discardLocked()
		s.state.Store(int32(StateFailed))
		return err
	}

	s.state.Store(int32(StateReady))
	s.logger.Info("print worker ready")
	return nil
}

// awaitReadyLocked waits for the readiness line within the startup timeout.
func (s *Supervisor) awaitReadyLocked(ctx context.Context, w WorkerHandle) error {
	timeout := time.NewTimer(s.cfg.StartupTimeout)
	defer timeout.Stop()

	for {
		select {
		case line, ok := <-w.Lines():
			if !ok {
				return fmt.Errorf("%w: output closed before readiness", ErrWorkerStart)
			}
			if line == readyLine {
				return nil
			}
			s.logger.Debug("ignoring worker output before readiness", "line", line)
		case <-w.Done():
			return fmt.Errorf("%w: exited before readiness", ErrWorkerStart)
		case <-timeout.C:
			return fmt.Errorf("%w: no readiness within %v", ErrWorkerStart, s.cfg.StartupTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Submit sends one print job to the ready worker and waits for exactly one
// acknowledgement line correlated to it. It returns the byte count the
// worker reported written. Submitting while not Ready is a programming
// error on the caller's side and is rejected, never queued.
func (s *Supervisor) Submit(ctx context.Context, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateReady || s.worker == nil {
		return 0, ErrNotReady
	}
	w := s.worker

	// Drop stale output left over from earlier jobs so an old result line
	// can never be matched to this submission.
drain:
	for {
		select {
		case line, ok := <-w.Lines():
			if !ok {
				s.becomeAbsentLocked()
				return 0, ErrWorkerExited
			}
			s.logger.Debug("discarding stale worker output", "line", line)
		default:
			break drain
		}
	}

	if err := w.Send(encodeJob(data)); err != nil {
		s.becomeAbsentLocked()
		return 0, fmt.Errorf("%w: %v", ErrWorkerExited, err)
	}

	timeout := time.NewTimer(s.cfg.JobTimeout)
	defer timeout.Stop()

	for {
		select {
		case line, ok := <-w.Lines():
			if !ok {
				s.becomeAbsentLocked()
				return 0, ErrWorkerExited
			}
			n, workerErr, parsed := parseResult(line)
			if !parsed {
				s.logger.Debug("ignoring worker output", "line", line)
				continue
			}
			if workerErr != "" {
				return 0, fmt.Errorf("%w: %s", ErrWorkerFailure, workerErr)
			}
			return n, nil
		case <-w.Done():
			s.becomeAbsentLocked()
			return 0, ErrWorkerExited
		case <-timeout.C:
			return 0, ErrPrintTimeout
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Discard terminates any current worker and returns the supervisor to
// Absent. The next EnsureReady starts from a clean slate.
func (s *Supervisor) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked()
}

func (s *Supervisor) discardLocked() {
	if s.worker != nil {
		s.gen++
		s.worker.Kill()
		s.worker = nil
	}
	s.state.Store(int32(StateAbsent))
}

func (s *Supervisor) becomeAbsentLocked() {
	s.worker = nil
	s.state.Store(int32(StateAbsent))
}

// watchExit clears readiness when the worker dies between jobs. The
// generation check keeps a stale notification from clobbering a newer
// worker.
func (s *Supervisor) watchExit(gen uint64, w WorkerHandle) {
	<-w.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.worker == w {
		s.logger.Warn("print worker exited unexpectedly")
		s.worker = nil
		s.state.Store(int32(StateAbsent))
	}
}
