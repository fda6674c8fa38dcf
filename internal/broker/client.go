package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"

	"peerdrop/internal/errs"
	"peerdrop/internal/logger"
	"peerdrop/internal/protocol"
	"peerdrop/internal/transport"
)

type ClientConfig struct {
	BrokerAddr string
	Logger     *logrus.Logger
}

// Client is a peer's connection to the broker. It obtains the session
// identity, relays outbound signals, and delivers inbound ones. It
// implements transport.Signaler.
type Client struct {
	config  ClientConfig
	logger  *logrus.Logger
	peer    *Peer
	id      string
	signals   chan transport.Signal
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(cfg ClientConfig) *Client {
	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	return &Client{
		config:  cfg,
		logger:  log,
		signals: make(chan transport.Signal, 16),
		done:    make(chan struct{}),
	}
}

// Connect dials the broker and performs the hello handshake. Any failure
// up to and including the welcome is an identity failure.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Infof("connecting to broker %s", c.config.BrokerAddr)

	conn, err := quic.DialAddr(ctx, c.config.BrokerAddr, ClientTLSConfig(), DefaultQUICConfig())
	if err != nil {
		return errs.NewIdentityError(c.config.BrokerAddr, err)
	}
	peer := NewPeer(conn)

	if err := peer.Send(ctx, &protocol.Hello{}); err != nil {
		_ = peer.Close()
		return errs.NewIdentityError(c.config.BrokerAddr, err)
	}

	msg, err := peer.Receive(ctx)
	if err != nil {
		_ = peer.Close()
		return errs.NewIdentityError(c.config.BrokerAddr, err)
	}
	welcome, ok := msg.(*protocol.Welcome)
	if !ok {
		_ = peer.Close()
		return errs.NewIdentityError(c.config.BrokerAddr, fmt.Errorf("expected welcome, got %s", msg.Type()))
	}

	c.peer = peer
	c.id = welcome.PeerID
	c.logger.Infof("broker assigned identity %s", c.id)

	go c.readLoop()
	return nil
}

// PeerID returns the identity the broker assigned, empty before Connect.
func (c *Client) PeerID() string {
	return c.id
}

// SendSignal relays payload to peerID through the broker.
func (c *Client) SendSignal(ctx context.Context, peerID string, payload []byte) error {
	if c.peer == nil {
		return errs.NewConnectionError(peerID, fmt.Errorf("not connected to broker"))
	}
	return c.peer.Send(ctx, &protocol.Signal{TargetID: peerID, Payload: payload})
}

// Signals delivers inbound signaling payloads. The channel closes when
// the broker connection ends.
func (c *Client) Signals() <-chan transport.Signal {
	return c.signals
}

// Close is idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.peer != nil {
			err = c.peer.Close()
		}
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.signals)

	for {
		msg, err := c.peer.Receive(context.Background())
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warnf("broker connection lost: %v", err)
			}
			return
		}

		switch m := msg.(type) {
		case *protocol.Signal:
			select {
			case c.signals <- transport.Signal{PeerID: m.SourceID, Payload: m.Payload}:
			case <-c.done:
				return
			}
		case *protocol.Error:
			c.logger.Warnf("broker error %s: %s", m.Code, m.Message)
		default:
			c.logger.Warnf("unexpected %s message from broker", msg.Type())
		}
	}
}
