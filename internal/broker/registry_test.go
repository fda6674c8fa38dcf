package broker

import "testing"

func TestRegistryAddLookupRemove(t *testing.T) {
	r := newRegistry()

	if _, exists := r.lookup("peer-1"); exists {
		t.Error("lookup on empty registry should miss")
	}

	peer := &Peer{}
	r.add("peer-1", peer)

	got, exists := r.lookup("peer-1")
	if !exists || got != peer {
		t.Error("expected to find the registered peer")
	}
	if r.count() != 1 {
		t.Errorf("expected 1 peer, got %d", r.count())
	}

	r.remove("peer-1")
	if _, exists := r.lookup("peer-1"); exists {
		t.Error("expected peer gone after remove")
	}
	if r.count() != 0 {
		t.Errorf("expected empty registry, got %d", r.count())
	}
}

func TestRegistryRemoveUnknown(t *testing.T) {
	r := newRegistry()
	r.remove("ghost")
	if r.count() != 0 {
		t.Errorf("expected empty registry, got %d", r.count())
	}
}
