// Package webrtc implements the peer transport over pion data channels.
// Signaling rides through the broker: the initiator sends an SDP offer,
// the responder answers, and the connection opens once the channel does.
package webrtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"peerdrop/internal/logger"
	"peerdrop/internal/transport"
)

// DefaultSTUNServers are used when the caller supplies none.
var DefaultSTUNServers = []string{"stun:stun.l.google.com:19302"}

type webrtcTransport struct {
	config      webrtc.Configuration
	signaler    transport.Signaler
	logger      *logrus.Logger
	connections map[string]*connection
	incoming    chan transport.Conn
	closed      bool
	mu          sync.RWMutex
}

// New creates a WebRTC transport that signals through signaler.
func New(signaler transport.Signaler, stunServers []string, log *logrus.Logger) transport.Transport {
	if len(stunServers) == 0 {
		stunServers = DefaultSTUNServers
	}
	if log == nil {
		log = logger.NewLogger()
	}

	iceServers := make([]webrtc.ICEServer, 0, len(stunServers))
	for _, server := range stunServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{server}})
	}

	return &webrtcTransport{
		config: webrtc.Configuration{
			ICEServers:         iceServers,
			ICETransportPolicy: webrtc.ICETransportPolicyAll,
		},
		signaler:    signaler,
		logger:      log,
		connections: make(map[string]*connection),
		incoming:    make(chan transport.Conn, 16),
	}
}

func (t *webrtcTransport) Connect(ctx context.Context, peerID string) (transport.Conn, error) {
	pc, err := webrtc.NewPeerConnection(t.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	conn := newConnection(peerID, pc, t.signaler, t.logger, true)
	conn.onClosed = func() { t.forget(peerID) }

	t.mu.Lock()
	t.connections[peerID] = conn
	t.mu.Unlock()

	if err := conn.createDataChannel(); err != nil {
		t.forget(peerID)
		return nil, err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.forget(peerID)
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		t.forget(peerID)
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}

	if err := t.signaler.SendSignal(ctx, peerID, []byte(offer.SDP)); err != nil {
		t.forget(peerID)
		return nil, fmt.Errorf("failed to send offer: %w", err)
	}

	return conn, nil
}

func (t *webrtcTransport) Accept() <-chan transport.Conn {
	return t.incoming
}

// HandleSignal feeds one broker-relayed payload into the matching
// connection, creating the responder side on a first contact.
func (t *webrtcTransport) HandleSignal(sig transport.Signal) error {
	t.mu.RLock()
	conn, exists := t.connections[sig.PeerID]
	t.mu.RUnlock()

	if !exists {
		pc, err := webrtc.NewPeerConnection(t.config)
		if err != nil {
			return fmt.Errorf("failed to create peer connection: %w", err)
		}

		conn = newConnection(sig.PeerID, pc, t.signaler, t.logger, false)
		conn.onClosed = func() { t.forget(sig.PeerID) }
		conn.onOpen = func() { t.deliver(conn) }

		t.mu.Lock()
		t.connections[sig.PeerID] = conn
		t.mu.Unlock()
	}

	return conn.handleSignal(sig.Payload)
}

// deliver hands an opened inbound connection to Accept. The incoming
// channel is only ever closed under the write lock, so checking closed
// and sending under the read lock cannot race a send onto a closed
// channel; a full buffer drops the connection instead of blocking Close.
func (t *webrtcTransport) deliver(conn *connection) {
	t.mu.RLock()
	delivered := false
	if !t.closed {
		select {
		case t.incoming <- conn:
			delivered = true
		default:
		}
	}
	closed := t.closed
	t.mu.RUnlock()

	// Closing the connection re-enters the transport lock via onClosed,
	// so it happens outside the locked section.
	if !delivered {
		if !closed {
			t.logger.Warnf("dropping inbound connection from %s: accept queue full", conn.PeerID())
		}
		_ = conn.Close()
	}
}

func (t *webrtcTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conns := t.connections
	t.connections = make(map[string]*connection)
	close(t.incoming)
	t.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return nil
}

func (t *webrtcTransport) forget(peerID string) {
	t.mu.Lock()
	delete(t.connections, peerID)
	t.mu.Unlock()
}

var _ transport.SignalHandler = (*webrtcTransport)(nil)
