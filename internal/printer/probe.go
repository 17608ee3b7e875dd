package printer

import (
	"context"
	"os"
)

// DeviceProbe answers point-in-time questions about the serial device node
// and the Bluetooth link. Implementations must not mutate anything; the
// caller decides what to do with a negative answer.
type DeviceProbe interface {
	DeviceExists() bool
	BluetoothConnected(ctx context.Context) bool
}

// Probe is the production DeviceProbe for one fixed device path and address.
type Probe struct {
	path    string
	control Control
}

// NewProbe creates a probe over the configured device node, reusing the
// Bluetooth control surface for the connection query.
func NewProbe(cfg Config, control Control) *Probe {
	return &Probe{path: cfg.DevicePath, control: control}
}

// DeviceExists reports whether the serial device node is present.
func (p *Probe) DeviceExists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// BluetoothConnected reports whether the OS-level link is up. Failures to
// query are reported as not connected, never raised.
func (p *Probe) BluetoothConnected(ctx context.Context) bool {
	return p.control.Connected(ctx)
}
