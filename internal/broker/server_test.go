package broker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"peerdrop/internal/errs"
	"peerdrop/internal/logger"
	"peerdrop/internal/transport"
)

func setupServer(t *testing.T) *Server {
	t.Helper()

	srv, err := NewServer(ServerConfig{
		Addr:   "127.0.0.1:0",
		Logger: logger.NewSilentLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = srv.Shutdown()
	})
	return srv
}

func connectClient(t *testing.T, addr string) *Client {
	t.Helper()

	client := NewClient(ClientConfig{BrokerAddr: addr, Logger: logger.NewSilentLogger()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestServerAddr(t *testing.T) {
	srv := setupServer(t)
	if srv.Addr() == "" {
		t.Error("expected non-empty address")
	}
}

func TestServerAssignsDistinctIdentities(t *testing.T) {
	srv := setupServer(t)

	a := connectClient(t, srv.Addr())
	b := connectClient(t, srv.Addr())

	if a.PeerID() == "" || b.PeerID() == "" {
		t.Fatal("expected both clients to receive identities")
	}
	if a.PeerID() == b.PeerID() {
		t.Errorf("expected distinct identities, both got %s", a.PeerID())
	}
}

func TestServerRelaysSignals(t *testing.T) {
	srv := setupServer(t)

	a := connectClient(t, srv.Addr())
	b := connectClient(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := []byte("sdp offer goes here")
	if err := a.SendSignal(ctx, b.PeerID(), payload); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}

	var sig transport.Signal
	select {
	case sig = <-b.Signals():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the relayed signal")
	}

	if sig.PeerID != a.PeerID() {
		t.Errorf("expected source %s, got %s", a.PeerID(), sig.PeerID)
	}
	if !bytes.Equal(sig.Payload, payload) {
		t.Error("relayed payload differs from original")
	}
}

func TestServerSignalToUnknownPeer(t *testing.T) {
	srv := setupServer(t)

	a := connectClient(t, srv.Addr())
	b := connectClient(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The broker answers with an error message; the session stays usable.
	if err := a.SendSignal(ctx, "nobody", []byte("hello?")); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}

	if err := a.SendSignal(ctx, b.PeerID(), []byte("still here")); err != nil {
		t.Fatalf("SendSignal after miss failed: %v", err)
	}
	select {
	case sig := <-b.Signals():
		if string(sig.Payload) != "still here" {
			t.Errorf("unexpected payload %q", sig.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the relayed signal")
	}
}

func TestServerDropsPeerAfterDisconnect(t *testing.T) {
	srv := setupServer(t)

	a := connectClient(t, srv.Addr())
	b := connectClient(t, srv.Addr())
	bID := b.PeerID()
	_ = b.Close()

	deadline := time.Now().Add(5 * time.Second)
	for srv.registry.count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the registry to drop the peer")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, exists := srv.registry.lookup(bID); exists {
		t.Error("expected the disconnected peer to be unregistered")
	}
	if _, exists := srv.registry.lookup(a.PeerID()); !exists {
		t.Error("expected the live peer to stay registered")
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	srv := setupServer(t)
	client := connectClient(t, srv.Addr())

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Never connected: still safe to close twice.
	idle := NewClient(ClientConfig{BrokerAddr: "127.0.0.1:1", Logger: logger.NewSilentLogger()})
	if err := idle.Close(); err != nil {
		t.Fatalf("Close on idle client failed: %v", err)
	}
	if err := idle.Close(); err != nil {
		t.Errorf("second Close on idle client failed: %v", err)
	}
}

func TestClientConnectFailure(t *testing.T) {
	client := NewClient(ClientConfig{BrokerAddr: "127.0.0.1:1", Logger: logger.NewSilentLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := client.Connect(ctx)
	if err == nil {
		t.Fatal("expected connect to an unreachable broker to fail")
	}
	if !errors.Is(err, errs.ErrIdentity) {
		t.Errorf("expected ErrIdentity, got %v", err)
	}
}
