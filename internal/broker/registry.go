package broker

import "sync"

// registry maps allocated peer identities to their live broker sessions.
type registry struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

func newRegistry() *registry {
	return &registry{peers: make(map[string]*Peer)}
}

func (r *registry) add(id string, peer *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[id] = peer
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
}

func (r *registry) lookup(id string) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peer, exists := r.peers[id]
	return peer, exists
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
