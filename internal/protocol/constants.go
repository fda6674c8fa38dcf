package protocol

const (
	// ChunkSize is the fixed payload size of a FileChunk. The final chunk
	// of a file may be shorter.
	ChunkSize = 16384

	// PaceWindow is the number of cumulative bytes between the sender's
	// voluntary pacing pauses.
	PaceWindow = 10 * ChunkSize
)

type MessageType uint16

const (
	MsgHello        MessageType = 0x0001
	MsgWelcome      MessageType = 0x0002
	MsgSignal       MessageType = 0x0010
	MsgFileStart    MessageType = 0x0020
	MsgFileChunk    MessageType = 0x0021
	MsgFileComplete MessageType = 0x0022
	MsgError        MessageType = 0x00FF
)

func (t MessageType) String() string {
	switch t {
	case MsgHello:
		return "HELLO"
	case MsgWelcome:
		return "WELCOME"
	case MsgSignal:
		return "SIGNAL"
	case MsgFileStart:
		return "FILE_START"
	case MsgFileChunk:
		return "FILE_CHUNK"
	case MsgFileComplete:
		return "FILE_COMPLETE"
	case MsgError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type ErrorCode uint16

const (
	ErrUnknown      ErrorCode = 0x0000
	ErrInvalidMsg   ErrorCode = 0x0001
	ErrPeerNotFound ErrorCode = 0x0002
	ErrInternal     ErrorCode = 0x00FF
)

func (e ErrorCode) String() string {
	switch e {
	case ErrInvalidMsg:
		return "INVALID_MESSAGE"
	case ErrPeerNotFound:
		return "PEER_NOT_FOUND"
	case ErrInternal:
		return "INTERNAL_ERROR"
	case ErrUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}
