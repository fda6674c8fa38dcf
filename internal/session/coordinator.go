package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"peerdrop/internal/errs"
	"peerdrop/internal/logger"
	"peerdrop/internal/protocol"
	"peerdrop/internal/store"
	"peerdrop/internal/transport"
)

const (
	// DefaultConnectTimeout bounds how long a connection may stay in the
	// connecting state before it is torn down.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultPacePause is the sender's voluntary pause at each
	// PaceWindow checkpoint.
	DefaultPacePause = 50 * time.Millisecond
)

// ErrStopped is returned by coordinator methods once the dispatch loop
// has exited.
var ErrStopped = errors.New("session coordinator stopped")

// HistoryRecorder persists terminal transfer outcomes. Failures to
// record are logged, never fatal.
type HistoryRecorder interface {
	Record(rec *store.TransferRecord) error
}

type Options struct {
	Transport transport.Transport
	Logger    *logrus.Logger
	Observer  Observer
	History   HistoryRecorder

	ConnectTimeout time.Duration
	PacePause      time.Duration
}

// Coordinator owns the single live connection and the single transfer
// session. All state lives on the dispatch goroutine started by Run;
// exported methods hand work to that goroutine and wait for the answer,
// so they are safe to call from anywhere.
type Coordinator struct {
	transport transport.Transport
	logger    *logrus.Logger
	observer  Observer
	history   HistoryRecorder
	codec     *protocol.Codec

	connectTimeout time.Duration
	pacePause      time.Duration

	commands     chan func()
	senderEvents chan senderEvent
	stopped      chan struct{}

	// Dispatch-goroutine state. Never touched from outside the loop.
	conn          transport.Conn
	remoteID      string
	connState     ConnState
	timer         *time.Timer
	receiver      *Receiver
	direction     Direction
	transferState TransferState
	progress      int
	sendingFile   string
	sendingSize   uint64
	sendingMime   string
	sendCancel    context.CancelFunc
	artifact      *Artifact
	lastErr       error
}

type senderEvent struct {
	progress int
	done     bool
	err      error
}

func New(opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger()
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}
	pacePause := opts.PacePause
	if pacePause == 0 {
		pacePause = DefaultPacePause
	}

	return &Coordinator{
		transport:      opts.Transport,
		logger:         log,
		observer:       opts.Observer,
		history:        opts.History,
		codec:          protocol.NewCodec(),
		connectTimeout: connectTimeout,
		pacePause:      pacePause,
		commands:       make(chan func()),
		senderEvents:   make(chan senderEvent, 16),
		stopped:        make(chan struct{}),
		receiver:       NewReceiver(log),
	}
}

// Run is the dispatch loop. Every state transition happens here, one
// event at a time: inbound connections, open/close/fault notifications,
// decoded messages, the connect timeout, sender progress, and user
// commands. It returns when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("session coordinator running")
	defer close(c.stopped)

	accept := c.transport.Accept()
	for {
		var (
			recv    <-chan []byte
			open    <-chan struct{}
			timeout <-chan time.Time
		)
		if c.conn != nil {
			recv = c.conn.Recv()
			if c.connState == StateConnecting {
				open = c.conn.Open()
			}
		}
		if c.timer != nil {
			timeout = c.timer.C
		}

		select {
		case <-ctx.Done():
			c.closeConnection()
			c.logger.Info("session coordinator stopped")
			return ctx.Err()

		case cmd := <-c.commands:
			cmd()

		case conn, ok := <-accept:
			if !ok {
				accept = nil
				continue
			}
			c.handleIncoming(conn)

		case <-open:
			c.handleOpen()

		case <-timeout:
			c.timer = nil
			c.handleTimeout()

		case data, ok := <-recv:
			if !ok {
				c.handleConnEnded()
			} else {
				c.handleData(data)
			}

		case ev := <-c.senderEvents:
			c.handleSenderEvent(ev)
		}
	}
}

// Initiate starts an outbound connection to peerID. Valid only while
// disconnected.
func (c *Coordinator) Initiate(ctx context.Context, peerID string) error {
	return c.call(func() error { return c.initiate(ctx, peerID) })
}

// Send starts transferring f over the connected link. Valid only while
// connected and with no transfer active.
func (c *Coordinator) Send(f File) error {
	return c.call(func() error { return c.startSend(f) })
}

// Disconnect closes the live connection, aborting any active transfer.
// No-op while disconnected.
func (c *Coordinator) Disconnect() {
	_ = c.call(func() error {
		c.closeConnection()
		return nil
	})
}

// Artifact returns the most recently received artifact, or nil.
func (c *Coordinator) Artifact() *Artifact {
	var a *Artifact
	_ = c.call(func() error {
		a = c.artifact
		return nil
	})
	return a
}

// DiscardArtifact releases the held artifact's content. Idempotent.
func (c *Coordinator) DiscardArtifact() {
	_ = c.call(func() error {
		if c.artifact != nil {
			c.artifact.Discard()
		}
		return nil
	})
}

// State returns the connection state.
func (c *Coordinator) State() ConnState {
	var s ConnState
	_ = c.call(func() error {
		s = c.connState
		return nil
	})
	return s
}

// Transfer returns the current transfer's direction, state, and
// progress percent.
func (c *Coordinator) Transfer() (Direction, TransferState, int) {
	var (
		d Direction
		s TransferState
		p int
	)
	_ = c.call(func() error {
		d, s, p = c.direction, c.transferState, c.progress
		return nil
	})
	return d, s, p
}

// LastError returns the most recent surfaced error message, empty after
// a successful connect.
func (c *Coordinator) LastError() string {
	var msg string
	_ = c.call(func() error {
		if c.lastErr != nil {
			msg = c.lastErr.Error()
		}
		return nil
	})
	return msg
}

// call runs fn on the dispatch goroutine and waits for it. Once the
// loop has exited it returns ErrStopped instead of blocking.
func (c *Coordinator) call(fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case c.commands <- func() { errCh <- fn() }:
	case <-c.stopped:
		return ErrStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Coordinator) initiate(ctx context.Context, peerID string) error {
	if c.connState != StateDisconnected {
		return fmt.Errorf("cannot initiate while %s", c.connState)
	}

	conn, err := c.transport.Connect(ctx, peerID)
	if err != nil {
		err = errs.NewConnectionError(peerID, err)
		c.surfaceError(err)
		return err
	}

	c.conn = conn
	c.remoteID = peerID
	c.beginConnecting()
	return nil
}

func (c *Coordinator) handleIncoming(conn transport.Conn) {
	if c.conn != nil {
		c.logger.Warnf("rejecting connection from %s: another connection is live", conn.PeerID())
		_ = conn.Close()
		return
	}

	c.conn = conn
	c.remoteID = conn.PeerID()
	c.beginConnecting()
}

func (c *Coordinator) beginConnecting() {
	c.logger.Infof("connecting to peer %s", c.remoteID)
	c.setConnState(StateConnecting)
	c.timer = time.NewTimer(c.connectTimeout)
}

func (c *Coordinator) handleOpen() {
	c.stopTimer()
	c.lastErr = nil
	c.logger.Infof("connected to peer %s", c.remoteID)
	c.setConnState(StateConnected)
}

func (c *Coordinator) handleTimeout() {
	if c.connState != StateConnecting {
		return
	}

	err := errs.NewTimeoutError(c.remoteID, c.connectTimeout)
	c.logger.Warn(err.Error())
	c.closeConnection()
	c.surfaceError(err)
}

// handleConnEnded runs when the transport's receive channel closes,
// covering both the clean close and the fault cases.
func (c *Coordinator) handleConnEnded() {
	fault := c.conn.Err()
	remoteID := c.remoteID

	c.closeConnection()

	if fault != nil {
		c.surfaceError(errs.NewConnectionError(remoteID, fault))
	} else {
		c.logger.Infof("peer %s closed the connection", remoteID)
	}
}

func (c *Coordinator) handleData(data []byte) {
	msg, err := c.codec.DecodeFromBytes(data)
	if err != nil {
		c.logger.Warnf("dropping message from peer %s: %v", c.remoteID, err)
		c.surfaceError(err)
		return
	}

	switch m := msg.(type) {
	case *protocol.FileStart:
		c.handleFileStart(m)
	case *protocol.FileChunk:
		c.handleFileChunk(m)
	case *protocol.FileComplete:
		c.handleFileComplete(m)
	default:
		c.logger.Warnf("unexpected %s message on peer connection", msg.Type())
	}
}

func (c *Coordinator) handleFileStart(msg *protocol.FileStart) {
	if c.direction == DirectionSending && c.transferState == TransferActive {
		c.logger.Warnf("peer started a transfer while we are sending, ignoring %q", msg.Name)
		return
	}

	c.receiver.HandleStart(msg)
	c.direction = DirectionReceiving
	c.transferState = TransferActive
	c.progress = 0
	c.observer.transferState(DirectionReceiving, TransferActive)
	c.observer.progress(DirectionReceiving, 0)
}

func (c *Coordinator) handleFileChunk(msg *protocol.FileChunk) {
	if err := c.receiver.HandleChunk(msg); err != nil {
		c.transferState = TransferFailed
		c.recordHistory(c.receiver.FileName(), 0, "", store.StatusAborted)
		c.observer.transferState(DirectionReceiving, TransferFailed)
		c.surfaceError(err)
		return
	}
	if c.transferState == TransferActive && c.direction == DirectionReceiving {
		c.progress = c.receiver.Progress()
		c.observer.progress(DirectionReceiving, c.progress)
	}
}

func (c *Coordinator) handleFileComplete(msg *protocol.FileComplete) {
	artifact, err := c.receiver.HandleComplete(msg)
	if err != nil {
		c.logger.Warnf("dropping file complete: %v", err)
		return
	}

	if c.artifact != nil {
		c.artifact.Discard()
	}
	c.artifact = artifact
	c.transferState = TransferCompleted
	c.progress = 100

	c.recordHistory(artifact.Name, artifact.Size, artifact.MimeType, store.StatusCompleted)
	c.observer.progress(DirectionReceiving, 100)
	c.observer.transferState(DirectionReceiving, TransferCompleted)
	c.observer.artifact(artifact)
}

func (c *Coordinator) startSend(f File) error {
	if c.connState != StateConnected {
		return fmt.Errorf("cannot send while %s", c.connState)
	}
	if c.transferState == TransferActive {
		return fmt.Errorf("another transfer is active")
	}

	c.direction = DirectionSending
	c.transferState = TransferActive
	c.progress = 0
	c.sendingFile = f.Name
	c.sendingSize = f.Size
	c.sendingMime = f.MimeType
	c.observer.transferState(DirectionSending, TransferActive)

	sendCtx, cancel := context.WithCancel(context.Background())
	c.sendCancel = cancel

	sender := NewSender(c.conn, c.logger, c.pacePause, func(pct int) {
		select {
		case c.senderEvents <- senderEvent{progress: pct}:
		case <-sendCtx.Done():
		}
	})
	go func() {
		err := sender.Send(sendCtx, f)
		select {
		case c.senderEvents <- senderEvent{done: true, err: err}:
		case <-sendCtx.Done():
		}
	}()
	return nil
}

func (c *Coordinator) handleSenderEvent(ev senderEvent) {
	// Events from an already-terminated send are stale; drop them.
	if c.direction != DirectionSending || c.transferState != TransferActive {
		return
	}

	if !ev.done {
		c.progress = ev.progress
		c.observer.progress(DirectionSending, ev.progress)
		return
	}

	if c.sendCancel != nil {
		c.sendCancel()
		c.sendCancel = nil
	}
	if ev.err != nil {
		c.transferState = TransferFailed
		c.recordHistory(c.sendingFile, c.sendingSize, c.sendingMime, store.StatusAborted)
		c.observer.transferState(DirectionSending, TransferFailed)
		c.surfaceError(ev.err)
		return
	}

	c.transferState = TransferCompleted
	c.recordHistory(c.sendingFile, c.sendingSize, c.sendingMime, store.StatusCompleted)
	c.observer.transferState(DirectionSending, TransferCompleted)
}

// closeConnection tears down the live connection and forcibly ends any
// active transfer. Safe to call when already disconnected.
func (c *Coordinator) closeConnection() {
	c.stopTimer()
	c.abortTransfer()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.remoteID = ""
	if c.connState != StateDisconnected {
		c.setConnState(StateDisconnected)
	}
}

func (c *Coordinator) abortTransfer() {
	if c.transferState != TransferActive {
		return
	}

	var (
		name string
		size uint64
		mime string
	)
	switch c.direction {
	case DirectionSending:
		name, size, mime = c.sendingFile, c.sendingSize, c.sendingMime
		if c.sendCancel != nil {
			c.sendCancel()
			c.sendCancel = nil
		}
	case DirectionReceiving:
		name = c.receiver.FileName()
		c.receiver.Abort()
	}

	c.transferState = TransferFailed
	c.recordHistory(name, size, mime, store.StatusAborted)
	c.observer.transferState(c.direction, TransferFailed)
	c.surfaceError(errs.NewTransferError(name, errs.ErrConnection))
}

func (c *Coordinator) setConnState(s ConnState) {
	c.connState = s
	c.observer.connectionState(s)
}

func (c *Coordinator) surfaceError(err error) {
	c.lastErr = err
	c.observer.failure(err)
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) recordHistory(name string, size uint64, mimeType, status string) {
	if c.history == nil {
		return
	}
	rec := &store.TransferRecord{
		PeerID:    c.remoteID,
		FileName:  name,
		Size:      size,
		MimeType:  mimeType,
		Direction: c.direction.String(),
		Status:    status,
	}
	if err := c.history.Record(rec); err != nil {
		c.logger.Warnf("failed to record transfer history: %v", err)
	}
}
