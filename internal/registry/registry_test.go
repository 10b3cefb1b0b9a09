package registry

import (
	"testing"

	"github.com/kvmshare/kvmshare/internal/wire"
)

func newPeer(id string) *Peer {
	return &Peer{DeviceID: id, Out: make(chan wire.Message, 4), Closed: make(chan struct{})}
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := New()
	p := newPeer("peer-1")
	r.Add(p)

	got, ok := r.Get("peer-1")
	if !ok || got != p {
		t.Fatalf("expected to find peer-1")
	}
	if r.Count() != 1 {
		t.Fatalf("expected count 1, got %d", r.Count())
	}

	removed, ok := r.Remove("peer-1")
	if !ok || removed != p {
		t.Fatalf("expected Remove to return the registered peer")
	}
	if r.Count() != 0 {
		t.Fatalf("expected count 0 after remove, got %d", r.Count())
	}
	select {
	case <-p.Closed:
	default:
		t.Fatalf("expected peer to be closed after Remove")
	}
}

func TestRegistryAddReplacesAndClosesPrevious(t *testing.T) {
	r := New()
	first := newPeer("peer-1")
	second := newPeer("peer-1")
	r.Add(first)
	r.Add(second)

	select {
	case <-first.Closed:
	default:
		t.Fatalf("expected the replaced peer to be closed")
	}
	got, _ := r.Get("peer-1")
	if got != second {
		t.Fatalf("expected the newer registration to win")
	}
	if r.Count() != 1 {
		t.Fatalf("expected count 1, got %d", r.Count())
	}
}

func TestPeerSendDropsWhenFull(t *testing.T) {
	p := &Peer{DeviceID: "p", Out: make(chan wire.Message, 1), Closed: make(chan struct{})}
	if !p.Send(wire.Ping{Seq: 1}) {
		t.Fatalf("expected first send to succeed")
	}
	if p.Send(wire.Ping{Seq: 2}) {
		t.Fatalf("expected second send to drop on a full queue")
	}
}

func TestPrimaryScreen(t *testing.T) {
	p := &Peer{Screens: []wire.ScreenInfo{
		{ID: 0, IsPrimary: false},
		{ID: 1, IsPrimary: true},
	}}
	s, ok := p.PrimaryScreen()
	if !ok || s.ID != 1 {
		t.Fatalf("expected the primary screen to win, got %+v ok=%v", s, ok)
	}

	empty := &Peer{}
	if _, ok := empty.PrimaryScreen(); ok {
		t.Fatalf("expected ok=false for a peer with no screens")
	}
}
