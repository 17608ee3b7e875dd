package printer

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// ResetSequencer forces the Bluetooth link and serial device back into a
// working state. The RFCOMM profile on this printer silently accepts writes
// on a stale channel, so node existence alone proves nothing; a full
// disconnect/unpair/power-cycle/re-pair episode is the only reliable
// recovery and is run unconditionally before every worker start.
type ResetSequencer struct {
	control Control
	probe   DeviceProbe
	cfg     Config
	logger  *log.Logger
}

// NewResetSequencer creates a sequencer over the given control surface.
func NewResetSequencer(cfg Config, control Control, probe DeviceProbe, logger *log.Logger) *ResetSequencer {
	return &ResetSequencer{control: control, probe: probe, cfg: cfg, logger: logger}
}

// Run performs one full reset episode. Every intermediate step is
// best-effort: its failure is logged and swallowed, because a dead link
// makes disconnect and unpair fail routinely. Only the final "device node
// still absent" condition is reported.
func (r *ResetSequencer) Run(ctx context.Context) error {
	r.logger.Info("resetting bluetooth link", "addr", r.cfg.DeviceAddress)

	if err := r.control.Disconnect(ctx); err != nil {
		r.logger.Debug("disconnect during reset", "err", err)
	}
	if err := r.control.Unpair(ctx); err != nil {
		r.logger.Debug("unpair during reset", "err", err)
	}

	// Power-cycling the adapter catches the cases where the radio itself
	// is wedged, not just the link.
	if err := r.control.PowerOff(ctx); err != nil {
		r.logger.Debug("power off during reset", "err", err)
	}
	if err := sleep(ctx, r.cfg.PowerCycleDelay); err != nil {
		return err
	}
	if err := r.control.PowerOn(ctx); err != nil {
		r.logger.Debug("power on during reset", "err", err)
	}
	if err := sleep(ctx, r.cfg.PowerCycleDelay); err != nil {
		return err
	}

	if err := r.control.Pair(ctx, r.cfg.PairingPIN); err != nil {
		r.logger.Debug("pair during reset", "err", err)
	}
	if err := r.control.Connect(ctx); err != nil {
		r.logger.Debug("connect during reset", "err", err)
	}

	if r.pollNode(ctx) {
		r.logger.Info("device node present after reset", "path", r.cfg.DevicePath)
		return nil
	}

	// One extra disconnect/connect cycle for the stubborn case where the
	// node only appears on a fresh connection.
	r.logger.Debug("device node absent, cycling connection once more")
	if err := r.control.Disconnect(ctx); err != nil {
		r.logger.Debug("extra disconnect during reset", "err", err)
	}
	if err := r.control.Connect(ctx); err != nil {
		r.logger.Debug("extra connect during reset", "err", err)
	}
	if r.pollNode(ctx) {
		r.logger.Info("device node present after extra cycle", "path", r.cfg.DevicePath)
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrDeviceUnavailable
}

// Reconnect is the lightweight keepalive path: a single connect attempt,
// no unpairing or power cycling.
func (r *ResetSequencer) Reconnect(ctx context.Context) error {
	if err := r.control.Connect(ctx); err != nil {
		return err
	}
	return sleep(ctx, r.cfg.ConnectSettle)
}

func (r *ResetSequencer) pollNode(ctx context.Context) bool {
	if err := sleep(ctx, r.cfg.ConnectSettle); err != nil {
		return false
	}
	for i := 0; i < r.cfg.NodePollAttempts; i++ {
		if r.probe.DeviceExists() {
			return true
		}
		if err := sleep(ctx, r.cfg.NodePollInterval); err != nil {
			return false
		}
	}
	return r.probe.DeviceExists()
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
