package printer

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Control is the narrow Bluetooth control surface used by the reset
// sequencer and the keepalive loop. The production implementation shells out
// to bluetoothctl; tests substitute a recorder.
type Control interface {
	Disconnect(ctx context.Context) error
	Unpair(ctx context.Context) error
	PowerOff(ctx context.Context) error
	PowerOn(ctx context.Context) error
	Pair(ctx context.Context, pin string) error
	Connect(ctx context.Context) error
	Connected(ctx context.Context) bool
}

// BluetoothctlControl drives a single fixed device through the bluetoothctl
// command line tool.
type BluetoothctlControl struct {
	addr   string
	runner commandRunner
	cfg    Config
	logger *log.Logger
}

// NewBluetoothctlControl creates a Control bound to the configured device
// address.
func NewBluetoothctlControl(cfg Config, logger *log.Logger) *BluetoothctlControl {
	return &BluetoothctlControl{
		addr:   cfg.DeviceAddress,
		runner: newExecRunner(cfg.CommandTimeout),
		cfg:    cfg,
		logger: logger,
	}
}

func (b *BluetoothctlControl) simple(ctx context.Context, verb string, args ...string) error {
	full := append([]string{verb}, args...)
	out, err := b.runner.Run(ctx, "bluetoothctl", full...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBluetoothCommand, err)
	}
	b.logger.Debug("bluetoothctl", "verb", verb, "output", strings.TrimSpace(string(out)))
	return nil
}

// Disconnect drops the current link to the device.
func (b *BluetoothctlControl) Disconnect(ctx context.Context) error {
	return b.simple(ctx, "disconnect", b.addr)
}

// Unpair removes the pairing record for the device.
func (b *BluetoothctlControl) Unpair(ctx context.Context) error {
	return b.simple(ctx, "remove", b.addr)
}

// PowerOff powers down the Bluetooth adapter.
func (b *BluetoothctlControl) PowerOff(ctx context.Context) error {
	return b.simple(ctx, "power", "off")
}

// PowerOn powers up the Bluetooth adapter.
func (b *BluetoothctlControl) PowerOn(ctx context.Context) error {
	return b.simple(ctx, "power", "on")
}

// Pair runs an interactive bluetoothctl session and answers the pairing
// prompt with the PIN. The printer only offers legacy PIN pairing, so the
// prompt has to be fed programmatically.
func (b *BluetoothctlControl) Pair(ctx context.Context, pin string) error {
	script := strings.Join([]string{
		"power on",
		"agent on",
		"default-agent",
		"pairable on",
		"pair " + b.addr,
		pin,
		"yes",
		"trust " + b.addr,
		"quit",
		"",
	}, "\n")

	ctx, cancel := context.WithTimeout(ctx, b.cfg.PairingTimeout)
	defer cancel()

	out, err := b.runner.RunWithStdin(ctx, script, "bluetoothctl")
	if err != nil {
		return fmt.Errorf("%w: pairing: %v", ErrBluetoothCommand, err)
	}
	if strings.Contains(string(out), "Failed to pair") {
		return fmt.Errorf("%w: pairing rejected by device", ErrBluetoothCommand)
	}
	b.logger.Debug("paired", "addr", b.addr)
	return nil
}

// Connect establishes the link to the device.
func (b *BluetoothctlControl) Connect(ctx context.Context) error {
	return b.simple(ctx, "connect", b.addr)
}

// Connected reports whether the OS considers the device connected. Any query
// failure is treated as not connected.
func (b *BluetoothctlControl) Connected(ctx context.Context) bool {
	out, err := b.runner.Run(ctx, "bluetoothctl", "info", b.addr)
	if err != nil {
		return false
	}
	return parseConnected(string(out))
}

func parseConnected(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Connected:") {
			return strings.Contains(line, "yes")
		}
	}
	return false
}
