package transport

// State is the lifecycle state of a Handle.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SendPolicy decides what Send does while the connection is still connecting.
type SendPolicy string

const (
	// SendPolicyQueue buffers frames and flushes them in order once open.
	SendPolicyQueue SendPolicy = "queue"
	// SendPolicyReject fails the send with ErrNotOpen.
	SendPolicyReject SendPolicy = "reject"
	// SendPolicyDrop discards the frame without reporting an error.
	SendPolicyDrop SendPolicy = "drop"
)

// ParseSendPolicy maps a flag value to a SendPolicy. The empty string selects
// the queue policy.
func ParseSendPolicy(s string) (SendPolicy, bool) {
	switch SendPolicy(s) {
	case "", SendPolicyQueue:
		return SendPolicyQueue, true
	case SendPolicyReject:
		return SendPolicyReject, true
	case SendPolicyDrop:
		return SendPolicyDrop, true
	}
	return "", false
}
