// Package printer keeps a Bluetooth-backed receipt printer usable across
// device flakiness: connection lifecycle, retry and reset escalation, and
// crash-isolated job execution through a persistent worker subprocess.
package printer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Manager is the public entry point of the printer connection core. It wires
// the probe, reset sequencer and supervisor together, serializes print jobs,
// and runs the background keepalive loop.
type Manager struct {
	cfg    Config
	logger *log.Logger

	probe DeviceProbe
	reset *ResetSequencer
	sup   *Supervisor

	// jobMu serializes print jobs, forced resets and the keepalive probe
	// against each other.
	jobMu  sync.Mutex
	closed atomic.Bool

	cancelKeepalive context.CancelFunc
	keepaliveDone   chan struct{}
}

// NewManager assembles a manager from its collaborators. Passing the control
// surface and spawner explicitly keeps the OS dependencies mockable.
func NewManager(cfg Config, control Control, probe DeviceProbe, spawner Spawner, logger *log.Logger) *Manager {
	reset := NewResetSequencer(cfg, control, probe, logger)
	m := &Manager{
		cfg:    cfg,
		logger: logger,
		probe:  probe,
		reset:  reset,
		sup:    NewSupervisor(cfg, spawner, reset, probe, logger),
	}
	if cfg.KeepaliveInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancelKeepalive = cancel
		m.keepaliveDone = make(chan struct{})
		go m.keepalive(ctx)
	}
	return m
}

// PrintReceipt sends pre-rendered receipt bytes through the worker. On any
// failure it performs exactly one recovery attempt: discard the worker, run
// a fresh reset episode, restart, and resubmit once. A second failure is
// surfaced verbatim; there are no further automatic retries against
// persistently broken hardware.
func (m *Manager) PrintReceipt(ctx context.Context, data []byte) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	err := m.printOnce(ctx, data)
	if err == nil {
		return nil
	}
	m.logger.Warn("print attempt failed, running recovery", "err", err)

	m.sup.Discard()
	if err := m.printOnce(ctx, data); err != nil {
		return fmt.Errorf("print failed after recovery: %w", err)
	}
	return nil
}

func (m *Manager) printOnce(ctx context.Context, data []byte) error {
	if err := m.sup.EnsureReady(ctx); err != nil {
		return err
	}
	n, err := m.sup.Submit(ctx, data)
	if err != nil {
		return err
	}
	m.logger.Info("receipt printed", "bytes", n)
	return nil
}

// Status aggregates probe results and worker state into one snapshot. It
// never triggers a reset or a worker start.
func (m *Manager) Status(ctx context.Context) Status {
	return Status{
		BluetoothConnected: m.probe.BluetoothConnected(ctx),
		DeviceExists:       m.probe.DeviceExists(),
		WorkerReady:        m.sup.Ready(),
	}
}

// ForceReset is the operator-triggered full reset, bypassing the lazy
// on-demand path. It leaves behind either a warmed-up ready worker or a
// concrete error.
func (m *Manager) ForceReset(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	m.sup.Discard()
	return m.sup.EnsureReady(ctx)
}

// Close stops the keepalive loop and terminates any worker.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	if m.cancelKeepalive != nil {
		m.cancelKeepalive()
		<-m.keepaliveDone
	}
	m.sup.Discard()
}

// keepalive periodically probes the Bluetooth link and issues a lightweight
// reconnect when it is found down. TryLock keeps it from contending with an
// in-progress job; a skipped tick costs nothing.
func (m *Manager) keepalive(ctx context.Context) {
	defer close(m.keepaliveDone)
	ticker := time.NewTicker(m.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.jobMu.TryLock() {
				continue
			}
			if !m.probe.BluetoothConnected(ctx) {
				m.logger.Info("keepalive: link down, reconnecting")
				if err := m.reset.Reconnect(ctx); err != nil {
					m.logger.Debug("keepalive reconnect failed", "err", err)
				}
			}
			m.jobMu.Unlock()
		}
	}
}
