package printer

import "errors"

// Common errors for the printer connection manager.
var (
	// Link and reset errors
	ErrDeviceUnavailable = errors.New("printer device unavailable after reset")
	ErrBluetoothCommand  = errors.New("bluetooth command failed")

	// Worker errors
	ErrWorkerStart   = errors.New("print worker did not start")
	ErrWorkerExited  = errors.New("print worker exited unexpectedly")
	ErrNotReady      = errors.New("print worker is not ready")
	ErrPrintTimeout  = errors.New("timed out waiting for print acknowledgement")
	ErrWorkerFailure = errors.New("print worker reported an error")

	// Manager errors
	ErrManagerClosed = errors.New("printer manager has been shut down")
)
