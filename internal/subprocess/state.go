package subprocess

// State is the lifecycle state of a CLITransport.
type State int

const (
	// StateIdle is the state before Connect.
	StateIdle State = iota
	// StateConnecting covers discovery and process start.
	StateConnecting
	// StateStreaming means the process is running and stdout is readable.
	StateStreaming
	// StateClosed is terminal.
	StateClosed
	// StateFailed means Connect or the stream failed; only Disconnect remains.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) canMoveTo(next State) bool {
	switch s {
	case StateIdle:
		return next == StateConnecting || next == StateClosed
	case StateConnecting:
		return next == StateStreaming || next == StateFailed || next == StateClosed
	case StateStreaming:
		return next == StateClosed || next == StateFailed
	case StateFailed:
		return next == StateClosed
	default:
		return false
	}
}
