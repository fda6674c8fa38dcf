package session

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"peerdrop/internal/errs"
	"peerdrop/internal/protocol"
)

// Receiver accumulates one inbound transfer. It is driven synchronously
// by the coordinator's dispatch loop, one message at a time, so it needs
// no locking. Chunks are kept in receipt order and joined only at
// completion.
type Receiver struct {
	logger *logrus.Logger

	state     TransferState
	name      string
	size      uint64
	mimeType  string
	chunks    [][]byte
	received  uint64
	nextIndex uint32
	progress  int
}

func NewReceiver(log *logrus.Logger) *Receiver {
	return &Receiver{logger: log}
}

func (r *Receiver) State() TransferState { return r.state }

func (r *Receiver) Progress() int { return r.progress }

func (r *Receiver) FileName() string { return r.name }

// HandleStart begins a new inbound transfer. A Start arriving while a
// transfer is active is a protocol violation by the sender; the stale
// session is discarded and the new one takes its place.
func (r *Receiver) HandleStart(msg *protocol.FileStart) {
	if r.state == TransferActive {
		r.logger.Warnf("new transfer %q started before %q completed, discarding partial data", msg.Name, r.name)
	}
	r.name = msg.Name
	r.size = msg.Size
	r.mimeType = msg.MimeType
	r.chunks = nil
	r.received = 0
	r.nextIndex = 0
	r.progress = 0
	r.state = TransferActive
	r.logger.Infof("receiving %q (%d bytes, %s)", msg.Name, msg.Size, msg.MimeType)
}

// HandleChunk appends one chunk. Chunks outside an active transfer are
// ignored; an index gap means the ordering guarantee was violated and
// fails the transfer.
func (r *Receiver) HandleChunk(msg *protocol.FileChunk) error {
	if r.state != TransferActive {
		r.logger.Warnf("ignoring chunk %d: no active transfer", msg.Index)
		return nil
	}
	if msg.Index != r.nextIndex {
		err := errs.NewMessageError(fmt.Sprintf("chunk index %d, expected %d", msg.Index, r.nextIndex), nil)
		r.fail()
		return errs.NewTransferError(r.name, err)
	}

	r.chunks = append(r.chunks, msg.Data)
	r.received += uint64(len(msg.Data))
	r.nextIndex++
	r.progress = int(msg.Progress)
	return nil
}

// HandleComplete joins the buffered chunks into an artifact. The length
// check against the declared size is best-effort: a mismatch is logged
// and flagged on the artifact, not treated as fatal.
func (r *Receiver) HandleComplete(msg *protocol.FileComplete) (*Artifact, error) {
	if r.state != TransferActive {
		return nil, errs.NewMessageError("file complete without an active transfer", nil)
	}

	content := make([]byte, 0, r.received)
	for _, chunk := range r.chunks {
		content = append(content, chunk...)
	}
	if uint64(len(content)) != msg.Size {
		r.logger.Warnf("received %d bytes for %q but sender declared %d", len(content), msg.Name, msg.Size)
	}

	artifact := newArtifact(msg.Name, msg.Size, msg.MimeType, content)

	r.chunks = nil
	r.received = 0
	r.progress = 100
	r.state = TransferCompleted
	r.logger.Infof("finished receiving %q", msg.Name)
	return artifact, nil
}

// Abort discards all partial state; no artifact is produced.
func (r *Receiver) Abort() {
	if r.state == TransferActive {
		r.logger.Warnf("transfer of %q aborted, discarding %d buffered bytes", r.name, r.received)
		r.fail()
	}
}

func (r *Receiver) fail() {
	r.chunks = nil
	r.received = 0
	r.state = TransferFailed
}
