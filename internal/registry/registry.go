// Package registry tracks the set of peers currently attached to a
// controller: the PeerRegistry of the design, one entry per device_id.
package registry

import (
	"sync"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// Peer is a connected device's registry entry: its outbound queue and the
// screen geometry it advertised at handshake.
type Peer struct {
	DeviceID   string
	DeviceName string
	Screens    []wire.ScreenInfo

	Out       chan wire.Message
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close marks the peer closed; idempotent.
func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.Closed) })
}

// PrimaryScreen returns the peer's first advertised screen, or the zero
// value with ok=false if it advertised none.
func (p *Peer) PrimaryScreen() (wire.ScreenInfo, bool) {
	if len(p.Screens) == 0 {
		return wire.ScreenInfo{}, false
	}
	for _, s := range p.Screens {
		if s.IsPrimary {
			return s, true
		}
	}
	return p.Screens[0], true
}

// Send enqueues msg on the peer's outbound queue without blocking. It
// returns false if the queue was full and the message was dropped.
func (p *Peer) Send(msg wire.Message) bool {
	select {
	case p.Out <- msg:
		return true
	default:
		return false
	}
}

// Registry is the controller's mapping from device_id to attached peer.
// Mutated only by connection handlers on attach/detach; read by the router
// on every routed event, so it is guarded by a plain RWMutex (teacher
// precedent: Hub.mu).
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{peers: make(map[string]*Peer)}
}

// Add registers a peer, replacing any existing entry for the same device_id.
func (r *Registry) Add(p *Peer) {
	r.mu.Lock()
	prev, existed := r.peers[p.DeviceID]
	r.peers[p.DeviceID] = p
	n := len(r.peers)
	r.mu.Unlock()
	if existed {
		prev.Close()
		logging.L().Warn("peer_replaced", "device_id", p.DeviceID)
	}
	metrics.SetPeersActive(n)
}

// Remove unregisters a device_id, returning its Peer if one was present.
func (r *Registry) Remove(deviceID string) (*Peer, bool) {
	r.mu.Lock()
	p, existed := r.peers[deviceID]
	if existed {
		delete(r.peers, deviceID)
	}
	n := len(r.peers)
	r.mu.Unlock()
	if existed {
		p.Close()
	}
	metrics.SetPeersActive(n)
	return p, existed
}

// Get looks up a peer by device_id.
func (r *Registry) Get(deviceID string) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[deviceID]
	return p, ok
}

// Count returns the number of currently attached peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
