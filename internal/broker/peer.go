package broker

import (
	"context"
	"sync"

	"github.com/quic-go/quic-go"

	"peerdrop/internal/protocol"
)

// Peer wraps one QUIC connection to or from the broker. All broker
// traffic flows over a single bidirectional control stream, opened
// lazily by whichever side speaks first.
type Peer struct {
	codec   *protocol.Codec
	conn    quic.Connection
	control quic.Stream
	mu      sync.Mutex
}

func NewPeer(conn quic.Connection) *Peer {
	return &Peer{
		codec: protocol.NewCodec(),
		conn:  conn,
	}
}

func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

func (p *Peer) Send(ctx context.Context, msg protocol.Message) error {
	stream, err := p.getControlStream(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codec.Encode(stream, msg)
}

func (p *Peer) Receive(ctx context.Context) (protocol.Message, error) {
	stream, err := p.acceptControlStream(ctx)
	if err != nil {
		return nil, err
	}

	return p.codec.Decode(stream)
}

func (p *Peer) Close() error {
	p.mu.Lock()
	if p.control != nil {
		_ = p.control.Close()
	}
	p.mu.Unlock()
	return p.conn.CloseWithError(0, "")
}

func (p *Peer) getControlStream(ctx context.Context) (quic.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.control != nil {
		return p.control, nil
	}

	stream, err := p.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	p.control = stream
	return stream, nil
}

func (p *Peer) acceptControlStream(ctx context.Context) (quic.Stream, error) {
	p.mu.Lock()
	if p.control != nil {
		stream := p.control
		p.mu.Unlock()
		return stream, nil
	}
	p.mu.Unlock()

	stream, err := p.conn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.control = stream
	p.mu.Unlock()
	return stream, nil
}
