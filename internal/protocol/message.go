package protocol

import (
	"fmt"

	"peerdrop/internal/errs"
)

// Message is the closed set of wire messages. Every variant validates its
// own fields so the codec can reject malformed input at the boundary.
type Message interface {
	Type() MessageType
	Validate() error
}

// Hello asks the broker for a peer identity.
type Hello struct{}

func (Hello) Type() MessageType { return MsgHello }

func (Hello) Validate() error { return nil }

// Welcome carries the identity the broker allocated for this session.
type Welcome struct {
	PeerID string
}

func (Welcome) Type() MessageType { return MsgWelcome }

func (m Welcome) Validate() error {
	if m.PeerID == "" {
		return errs.NewMessageError("welcome with empty peer id", nil)
	}
	return nil
}

// Signal relays an opaque signaling payload (an SDP offer or answer)
// between two peers through the broker. SourceID is filled in by the
// broker, never trusted from the sender.
type Signal struct {
	TargetID string
	SourceID string
	Payload  []byte
}

func (Signal) Type() MessageType { return MsgSignal }

func (m Signal) Validate() error {
	if m.TargetID == "" {
		return errs.NewMessageError("signal with empty target id", nil)
	}
	if len(m.Payload) == 0 {
		return errs.NewMessageError("signal with empty payload", nil)
	}
	return nil
}

// FileStart announces a transfer and carries the file's metadata.
type FileStart struct {
	Name     string
	Size     uint64
	MimeType string
}

func (FileStart) Type() MessageType { return MsgFileStart }

func (m FileStart) Validate() error {
	if m.Name == "" {
		return errs.NewMessageError("file start with empty name", nil)
	}
	return nil
}

// FileChunk carries one slice of file content. Index is a monotonic
// counter starting at 0; the receiver verifies it matches the next
// expected chunk rather than trusting delivery order alone. Progress is
// the sender's cumulative percentage after this chunk.
type FileChunk struct {
	Index    uint32
	Data     []byte
	Progress uint32
}

func (FileChunk) Type() MessageType { return MsgFileChunk }

func (m FileChunk) Validate() error {
	if len(m.Data) == 0 {
		return errs.NewMessageError("file chunk with no data", nil)
	}
	if len(m.Data) > ChunkSize {
		return errs.NewMessageError(fmt.Sprintf("file chunk of %d bytes exceeds %d", len(m.Data), ChunkSize), nil)
	}
	if m.Progress > 100 {
		return errs.NewMessageError(fmt.Sprintf("progress %d out of range", m.Progress), nil)
	}
	return nil
}

// FileComplete ends a transfer, repeating the metadata from FileStart.
type FileComplete struct {
	Name     string
	Size     uint64
	MimeType string
}

func (FileComplete) Type() MessageType { return MsgFileComplete }

func (m FileComplete) Validate() error {
	if m.Name == "" {
		return errs.NewMessageError("file complete with empty name", nil)
	}
	return nil
}

// Error reports a broker-side failure to the peer that caused it.
type Error struct {
	Code    ErrorCode
	Message string
}

func (Error) Type() MessageType { return MsgError }

func (Error) Validate() error { return nil }
