package printer

// WorkerState represents the lifecycle state of the print worker process.
type WorkerState int32

const (
	// StateAbsent indicates no worker process exists.
	StateAbsent WorkerState = iota
	// StateStarting indicates a worker is being reset and spawned.
	StateStarting
	// StateReady indicates the worker has emitted its boot acknowledgement.
	StateReady
	// StateFailed indicates the last start attempt failed.
	StateFailed
)

// String returns the string representation of the state.
func (s WorkerState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the printer link for external polling.
// Reading it never triggers a reset or a worker start.
type Status struct {
	BluetoothConnected bool `json:"bluetoothConnected"`
	DeviceExists       bool `json:"deviceExists"`
	WorkerReady        bool `json:"workerReady"`
}
