// Package broker implements the signaling rendezvous: a QUIC server that
// hands out peer identities and relays opaque signaling payloads between
// them, plus the client peers use to reach it. The broker never sees file
// content.
package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"

	"peerdrop/internal/logger"
	"peerdrop/internal/protocol"
)

type ServerConfig struct {
	Addr   string
	Logger *logrus.Logger
}

type Server struct {
	logger   *logrus.Logger
	listener *quic.Listener
	registry *registry
}

func NewServer(cfg ServerConfig) (*Server, error) {
	tlsConf, err := ServerTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("building broker TLS config: %w", err)
	}

	listener, err := quic.ListenAddr(cfg.Addr, tlsConf, DefaultQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	return &Server{
		logger:   log,
		listener: listener,
		registry: newRegistry(),
	}, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Shutdown() error {
	s.logger.Info("shutting down broker")
	return s.listener.Close()
}

// Start accepts peers until ctx is cancelled or the listener closes.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Infof("broker listening on %s", s.Addr())

	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go s.handlePeer(ctx, NewPeer(conn))
	}
}

// handlePeer runs one peer session: a Hello handshake that allocates the
// identity, then a relay loop for its signals.
func (s *Server) handlePeer(ctx context.Context, peer *Peer) {
	remoteAddr := peer.RemoteAddr()
	defer func() { _ = peer.Close() }()

	msg, err := peer.Receive(ctx)
	if err != nil {
		s.logger.Debugf("dropping %s before handshake: %v", remoteAddr, err)
		return
	}
	if _, ok := msg.(*protocol.Hello); !ok {
		s.logger.Warnf("peer %s opened with %s instead of hello", remoteAddr, msg.Type())
		_ = peer.Send(ctx, &protocol.Error{Code: protocol.ErrInvalidMsg, Message: "expected hello"})
		return
	}

	id := uuid.NewString()
	if err := peer.Send(ctx, &protocol.Welcome{PeerID: id}); err != nil {
		s.logger.Warnf("failed to welcome peer %s: %v", remoteAddr, err)
		return
	}

	s.registry.add(id, peer)
	defer s.registry.remove(id)
	s.logger.Infof("peer %s joined as %s", remoteAddr, id)

	for {
		msg, err := peer.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Infof("peer %s left", id)
			}
			return
		}
		s.handleMessage(ctx, id, peer, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, id string, peer *Peer, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Signal:
		target, exists := s.registry.lookup(m.TargetID)
		if !exists {
			s.logger.Debugf("peer %s signaled unknown peer %s", id, m.TargetID)
			_ = peer.Send(ctx, &protocol.Error{
				Code:    protocol.ErrPeerNotFound,
				Message: fmt.Sprintf("peer %s is not connected", m.TargetID),
			})
			return
		}

		// The source identity is stamped by the broker, never trusted
		// from the sender.
		relay := &protocol.Signal{TargetID: m.TargetID, SourceID: id, Payload: m.Payload}
		if err := target.Send(ctx, relay); err != nil {
			s.logger.Warnf("failed to relay signal from %s to %s: %v", id, m.TargetID, err)
			_ = peer.Send(ctx, &protocol.Error{
				Code:    protocol.ErrInternal,
				Message: fmt.Sprintf("could not reach peer %s", m.TargetID),
			})
		}

	default:
		s.logger.Warnf("unhandled %s message from peer %s", msg.Type(), id)
		_ = peer.Send(ctx, &protocol.Error{Code: protocol.ErrInvalidMsg, Message: "unexpected message"})
	}
}
