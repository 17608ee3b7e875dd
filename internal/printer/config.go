package printer

import "time"

// Config holds configuration for the printer connection manager.
type Config struct {
	DeviceAddress string // Bluetooth hardware address of the printer
	DevicePath    string // serial device node bound to the address
	PairingPIN    string // numeric PIN answered during pairing
	BaudRate      int    // serial baud rate used by the worker

	StartupTimeout    time.Duration // bound on worker spawn + boot acknowledgement
	JobTimeout        time.Duration // per-job bound on the result acknowledgement
	CommandTimeout    time.Duration // bound on a single bluetoothctl invocation
	PairingTimeout    time.Duration // bound on the interactive pairing session
	PowerCycleDelay   time.Duration // settle delay around radio power cycling
	ConnectSettle     time.Duration // settle delay after connect before polling
	NodePollInterval  time.Duration // sleep between device node polls
	NodePollAttempts  int           // polls per cycle before escalating
	KeepaliveInterval time.Duration // background link probe period (0 disables)
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DevicePath:        "/dev/rfcomm0",
		PairingPIN:        "0000",
		BaudRate:          9600,
		StartupTimeout:    30 * time.Second,
		JobTimeout:        10 * time.Second,
		CommandTimeout:    5 * time.Second,
		PairingTimeout:    20 * time.Second,
		PowerCycleDelay:   2 * time.Second,
		ConnectSettle:     time.Second,
		NodePollInterval:  500 * time.Millisecond,
		NodePollAttempts:  10,
		KeepaliveInterval: 30 * time.Second,
	}
}
