package webrtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"peerdrop/internal/transport"
)

const recvBuffer = 1024

type connection struct {
	peerID      string
	pc          *webrtc.PeerConnection
	signaler    transport.Signaler
	logger      *logrus.Logger
	isInitiator bool

	recvChan  chan []byte
	opened    chan struct{}
	openOnce  sync.Once
	closeOnce sync.Once
	onOpen    func()
	onClosed  func()

	mu  sync.Mutex
	dc  *webrtc.DataChannel
	err error
}

func newConnection(peerID string, pc *webrtc.PeerConnection, signaler transport.Signaler, log *logrus.Logger, isInitiator bool) *connection {
	conn := &connection{
		peerID:      peerID,
		pc:          pc,
		signaler:    signaler,
		logger:      log,
		isInitiator: isInitiator,
		recvChan:    make(chan []byte, recvBuffer),
		opened:      make(chan struct{}),
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed:
			conn.teardown(fmt.Errorf("peer connection failed"))
		case webrtc.PeerConnectionStateClosed:
			conn.teardown(nil)
		}
	})

	if !isInitiator {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			conn.setupDataChannel(dc)
		})
	}

	return conn
}

func (c *connection) createDataChannel() error {
	ordered := true
	dc, err := c.pc.CreateDataChannel("data", &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	c.setupDataChannel(dc)
	return nil
}

func (c *connection) setupDataChannel(dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.openOnce.Do(func() { close(c.opened) })
		if c.onOpen != nil {
			c.onOpen()
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case c.recvChan <- msg.Data:
		default:
			// Ordered delivery cannot survive a dropped message, so a
			// full buffer ends the connection instead.
			c.logger.Errorf("receive buffer overflow on peer %s", c.peerID)
			c.teardown(fmt.Errorf("receive buffer overflow"))
			_ = c.pc.Close()
		}
	})

	dc.OnClose(func() {
		c.teardown(nil)
	})
}

// handleSignal applies the remote description and, on the responder
// side, produces the answer.
func (c *connection) handleSignal(payload []byte) error {
	sdp := string(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pc.RemoteDescription() != nil {
		return nil
	}

	desc := webrtc.SessionDescription{SDP: sdp}
	if c.isInitiator {
		desc.Type = webrtc.SDPTypeAnswer
	} else {
		desc.Type = webrtc.SDPTypeOffer
	}

	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	if !c.isInitiator {
		answer, err := c.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("failed to create answer: %w", err)
		}
		if err := c.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("failed to set local description: %w", err)
		}
		if err := c.signaler.SendSignal(context.Background(), c.peerID, []byte(answer.SDP)); err != nil {
			return fmt.Errorf("failed to send answer: %w", err)
		}
	}

	return nil
}

func (c *connection) PeerID() string {
	return c.peerID
}

func (c *connection) Open() <-chan struct{} {
	return c.opened
}

func (c *connection) Send(data []byte) error {
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()

	if dc == nil {
		return fmt.Errorf("data channel not ready")
	}
	return dc.Send(data)
}

func (c *connection) Recv() <-chan []byte {
	return c.recvChan
}

func (c *connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *connection) Close() error {
	c.teardown(nil)

	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()
	if dc != nil {
		_ = dc.Close()
	}
	return c.pc.Close()
}

// teardown records the fault (first one wins) and closes the receive
// channel exactly once.
func (c *connection) teardown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.recvChan)
		if c.onClosed != nil {
			c.onClosed()
		}
	})
}

var _ transport.Conn = (*connection)(nil)
