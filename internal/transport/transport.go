// Package transport defines the abstract peer channel the session layer
// runs on: a reliable, ordered, message-based link between two peer
// identities, plus the signaling hook used to broker new links.
package transport

import "context"

// Transport creates and accepts peer connections.
type Transport interface {
	// Connect starts an outbound connection attempt to peerID. The
	// returned Conn is not usable until its Open channel fires.
	Connect(ctx context.Context, peerID string) (Conn, error)
	// Accept delivers inbound connections once their channel is open.
	Accept() <-chan Conn
	Close() error
}

// Conn is one reliable, ordered, message-based channel to a remote peer.
// Recv yields messages in the exact order the peer sent them and is
// closed when the connection ends; Err reports the fault that ended it,
// or nil after a clean close.
type Conn interface {
	PeerID() string
	Open() <-chan struct{}
	Send(data []byte) error
	Recv() <-chan []byte
	Err() error
	Close() error
}

// Signaler delivers opaque signaling payloads to a remote peer out of
// band, through the broker.
type Signaler interface {
	SendSignal(ctx context.Context, peerID string, payload []byte) error
}

// Signal is an inbound signaling payload from a remote peer.
type Signal struct {
	PeerID  string
	Payload []byte
}

// SignalHandler consumes inbound signals; the WebRTC transport implements
// it to complete offer/answer exchanges.
type SignalHandler interface {
	HandleSignal(sig Signal) error
}
