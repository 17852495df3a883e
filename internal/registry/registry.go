// Package registry tracks the peer agents a node knows about and
// their liveness, fed by registration envelopes and pong receipts.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Role distinguishes the two agent kinds in the help network.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleSpecialist  Role = "specialist"
)

// Peer is one known agent.
type Peer struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	Address  string    `json:"address"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

// Registry is a concurrency-safe peer address book.
type Registry struct {
	peers map[string]*Peer
	mu    sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{peers: make(map[string]*Peer)}
}

// Register adds or replaces a peer, marking it online now.
func (r *Registry) Register(peer Peer) error {
	if peer.ID == "" {
		return errors.New("peer id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	peer.Status = "online"
	peer.LastSeen = time.Now()
	r.peers[peer.ID] = &peer
	return nil
}

// Get retrieves a peer by id.
func (r *Registry) Get(id string) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.peers[id]
	if !ok {
		return Peer{}, errors.New("peer not found")
	}
	return *peer, nil
}

// Peers returns all known peers, ordered by id.
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, peer := range r.peers {
		out = append(out, *peer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PeersByRole returns all peers with the given role, ordered by id.
func (r *Registry) PeersByRole(role Role) []Peer {
	var out []Peer
	for _, peer := range r.Peers() {
		if peer.Role == role {
			out = append(out, peer)
		}
	}
	return out
}

// FirstSpecialist returns the first specialist peer by id order, for
// delegation when no routing hint narrows the choice.
func (r *Registry) FirstSpecialist() (Peer, bool) {
	specialists := r.PeersByRole(RoleSpecialist)
	if len(specialists) == 0 {
		return Peer{}, false
	}
	return specialists[0], true
}

// MarkAlive records a liveness signal (pong receipt) from a peer.
func (r *Registry) MarkAlive(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[id]
	if !ok {
		return errors.New("peer not found")
	}
	if status == "" {
		status = "online"
	}
	peer.Status = status
	peer.LastSeen = time.Now()
	return nil
}

// Unregister removes a peer.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[id]; !ok {
		return errors.New("peer not found")
	}
	delete(r.peers, id)
	return nil
}
