// Package pipe provides an in-memory transport: pairs of connections
// joined by bounded channels. It backs the session tests and the
// loopback path, with deterministic ordering and no network.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"peerdrop/internal/transport"
)

const recvBuffer = 1024

var errClosed = errors.New("pipe: connection closed")

// Conn is one end of an in-memory connection pair.
type Conn struct {
	peerID   string
	remote   *Conn
	in       chan []byte
	opened   chan struct{}
	openOnce sync.Once

	mu     sync.Mutex
	closed bool
	err    error
}

// Pair returns two joined connections. The first end reports remoteID as
// its peer, the second reports localID. Neither end is open yet; use
// MarkOpen (or let Network do it).
func Pair(localID, remoteID string) (*Conn, *Conn) {
	a := &Conn{
		peerID: remoteID,
		in:     make(chan []byte, recvBuffer),
		opened: make(chan struct{}),
	}
	b := &Conn{
		peerID: localID,
		in:     make(chan []byte, recvBuffer),
		opened: make(chan struct{}),
	}
	a.remote = b
	b.remote = a
	return a, b
}

func (c *Conn) PeerID() string {
	return c.peerID
}

func (c *Conn) Open() <-chan struct{} {
	return c.opened
}

// MarkOpen fires this end's open notification. Safe to call repeatedly.
func (c *Conn) MarkOpen() {
	c.openOnce.Do(func() { close(c.opened) })
}

func (c *Conn) Send(data []byte) error {
	buf := append([]byte(nil), data...)

	r := c.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed
	}
	select {
	case r.in <- buf:
		return nil
	default:
		return fmt.Errorf("pipe: receive buffer full for peer %s", c.peerID)
	}
}

func (c *Conn) Recv() <-chan []byte {
	return c.in
}

func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends both directions cleanly.
func (c *Conn) Close() error {
	c.teardown(nil)
	c.remote.teardown(nil)
	return nil
}

// Fail ends both directions and records err as the fault, simulating a
// transport error event.
func (c *Conn) Fail(err error) {
	c.teardown(err)
	c.remote.teardown(err)
}

func (c *Conn) teardown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.in)
}

// Network joins named endpoints so that Connect on one delivers an
// inbound connection to the other.
type Network struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	holdOpen  bool
}

func NewNetwork() *Network {
	return &Network{endpoints: make(map[string]*Endpoint)}
}

// SetHoldOpen stops the network from opening new connections, leaving
// them stuck in the connecting state. Used by timeout tests.
func (n *Network) SetHoldOpen(hold bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.holdOpen = hold
}

// Endpoint registers id on the network and returns its transport.
func (n *Network) Endpoint(id string) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, exists := n.endpoints[id]; exists {
		return e
	}
	e := &Endpoint{
		net:      n,
		id:       id,
		incoming: make(chan transport.Conn, 16),
	}
	n.endpoints[id] = e
	return e
}

type Endpoint struct {
	net      *Network
	id       string
	incoming chan transport.Conn
}

func (e *Endpoint) Connect(ctx context.Context, peerID string) (transport.Conn, error) {
	e.net.mu.Lock()
	target, exists := e.net.endpoints[peerID]
	hold := e.net.holdOpen
	e.net.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("pipe: unknown peer %s", peerID)
	}

	local, remote := Pair(e.id, peerID)
	if !hold {
		local.MarkOpen()
		remote.MarkOpen()
		select {
		case target.incoming <- remote:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return local, nil
}

func (e *Endpoint) Accept() <-chan transport.Conn {
	return e.incoming
}

func (e *Endpoint) Close() error {
	e.net.mu.Lock()
	delete(e.net.endpoints, e.id)
	e.net.mu.Unlock()
	return nil
}

var (
	_ transport.Transport = (*Endpoint)(nil)
	_ transport.Conn      = (*Conn)(nil)
)
