package pipe

import (
	"context"
	"errors"
	"testing"
)

func TestPairDeliversInOrder(t *testing.T) {
	a, b := Pair("alice", "bob")

	for i := byte(0); i < 10; i++ {
		if err := a.Send([]byte{i}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	for i := byte(0); i < 10; i++ {
		data := <-b.Recv()
		if len(data) != 1 || data[0] != i {
			t.Fatalf("expected message %d, got %v", i, data)
		}
	}
}

func TestPairPeerIDs(t *testing.T) {
	a, b := Pair("alice", "bob")
	if a.PeerID() != "bob" {
		t.Errorf("expected bob, got %s", a.PeerID())
	}
	if b.PeerID() != "alice" {
		t.Errorf("expected alice, got %s", b.PeerID())
	}
}

func TestCloseEndsBothDirections(t *testing.T) {
	a, b := Pair("alice", "bob")
	_ = a.Close()

	if _, ok := <-a.Recv(); ok {
		t.Error("expected local recv channel closed")
	}
	if _, ok := <-b.Recv(); ok {
		t.Error("expected remote recv channel closed")
	}
	if a.Err() != nil || b.Err() != nil {
		t.Error("clean close must not record a fault")
	}
	if err := a.Send([]byte("x")); err == nil {
		t.Error("expected send after close to fail")
	}
}

func TestFailRecordsFault(t *testing.T) {
	a, b := Pair("alice", "bob")
	fault := errors.New("ice failed")
	a.Fail(fault)

	if _, ok := <-b.Recv(); ok {
		t.Error("expected recv channel closed after fail")
	}
	if b.Err() != fault {
		t.Errorf("expected fault on remote end, got %v", b.Err())
	}
	if a.Err() != fault {
		t.Errorf("expected fault on local end, got %v", a.Err())
	}
}

func TestNetworkConnect(t *testing.T) {
	net := NewNetwork()
	alice := net.Endpoint("alice")
	bob := net.Endpoint("bob")

	conn, err := alice.Connect(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-conn.Open():
	default:
		t.Fatal("expected outbound connection to be open")
	}

	inbound := <-bob.Accept()
	if inbound.PeerID() != "alice" {
		t.Errorf("expected inbound peer alice, got %s", inbound.PeerID())
	}

	if err := conn.Send([]byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := <-inbound.Recv(); string(got) != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestNetworkUnknownPeer(t *testing.T) {
	net := NewNetwork()
	alice := net.Endpoint("alice")

	if _, err := alice.Connect(context.Background(), "nobody"); err == nil {
		t.Error("expected error connecting to unknown peer")
	}
}

func TestNetworkHoldOpen(t *testing.T) {
	net := NewNetwork()
	alice := net.Endpoint("alice")
	net.Endpoint("bob")
	net.SetHoldOpen(true)

	conn, err := alice.Connect(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-conn.Open():
		t.Error("expected connection to stay unopened")
	default:
	}
}
