package session

// ConnState is the lifecycle state of the peer connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Direction says which side of a transfer this endpoint is on.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionSending
	DirectionReceiving
)

func (d Direction) String() string {
	switch d {
	case DirectionSending:
		return "sending"
	case DirectionReceiving:
		return "receiving"
	default:
		return "none"
	}
}

// TransferState is the local view of the current transfer session.
type TransferState int

const (
	TransferIdle TransferState = iota
	TransferActive
	TransferCompleted
	TransferFailed
)

func (s TransferState) String() string {
	switch s {
	case TransferIdle:
		return "idle"
	case TransferActive:
		return "active"
	case TransferCompleted:
		return "completed"
	case TransferFailed:
		return "failed"
	default:
		return "unknown"
	}
}
