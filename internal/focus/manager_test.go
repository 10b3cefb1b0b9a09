package focus

import (
	"testing"

	"github.com/kvmshare/kvmshare/internal/wire"
)

func enterRight(t *testing.T, m *Manager) RouteResult {
	t.Helper()
	r := m.HandleLocalMouseMove(1918.1, 400)
	if !r.Forward || r.DeviceID != "peer" {
		t.Fatalf("expected entry to forward to peer, got %+v", r)
	}
	if len(r.Msgs) != 2 {
		t.Fatalf("expected entry to forward EnterScreen and MouseMove, got %+v", r.Msgs)
	}
	if _, ok := r.Msgs[0].(wire.EnterScreen); !ok {
		t.Fatalf("expected first forwarded message to be EnterScreen, got %T", r.Msgs[0])
	}
	if _, ok := r.Msgs[1].(wire.MouseMove); !ok {
		t.Fatalf("expected second forwarded message to be MouseMove, got %T", r.Msgs[1])
	}
	if !r.Warp {
		t.Fatalf("expected entry to request a recenter warp")
	}
	return r
}

func newManagerWithRightPeer() *Manager {
	m := New(1920, 1080)
	m.RegisterEdge(wire.EdgeRight, "peer", 1920, 1080)
	return m
}

func TestEntryFromRightEdge(t *testing.T) {
	m := newManagerWithRightPeer()
	r := enterRight(t, m)
	enter := r.Msgs[0].(wire.EnterScreen)
	if enter.Position.X != 0 || enter.Position.Y != 400 {
		t.Fatalf("expected entry position (0, 400), got %+v", enter.Position)
	}
	move := r.Msgs[1].(wire.MouseMove)
	if move.X != 0 || move.Y != 400 {
		t.Fatalf("expected entry MouseMove (0, 400), got %+v", move)
	}
	st := m.State()
	if st.Kind != StateRemote || st.DeviceID != "peer" || st.VX != 0 || st.VY != 400 {
		t.Fatalf("unexpected state after entry: %+v", st)
	}
}

func TestDeadBand(t *testing.T) {
	m := newManagerWithRightPeer()
	enterRight(t, m)

	r := m.HandleLocalMouseMove(960, 540)
	if r.Forward || r.Warp {
		t.Fatalf("expected dead-band move to produce no action, got %+v", r)
	}
}

func TestDeltaPreservation(t *testing.T) {
	m := newManagerWithRightPeer()
	enterRight(t, m)

	r1 := m.HandleLocalMouseMove(970, 540)
	if !r1.Forward {
		t.Fatalf("expected first move to forward")
	}
	if len(r1.Msgs) != 1 {
		t.Fatalf("expected exactly one forwarded message, got %+v", r1.Msgs)
	}
	d1, ok := r1.Msgs[0].(wire.MouseDelta)
	if !ok || d1.DX != 10 || d1.DY != 0 {
		t.Fatalf("expected MouseDelta{10,0}, got %+v (%T)", r1.Msgs[0], r1.Msgs[0])
	}

	r2 := m.HandleLocalMouseMove(960, 540)
	if r2.Forward {
		t.Fatalf("expected the warp echo to be absorbed by the dead-band, got %+v", r2)
	}

	st := m.State()
	if st.VX != 10 || st.VY != 400 {
		t.Fatalf("expected virtual position (10, 400), got (%v, %v)", st.VX, st.VY)
	}
}

func TestReverseExit(t *testing.T) {
	m := newManagerWithRightPeer()
	enterRight(t, m)

	// Drive virtual_x from 0 below zero: a delta of -T (or more negative)
	// clamps to 0, landing on the Left edge (the Right entry's opposite).
	r := m.HandleLocalMouseMove(960-10, 540)
	if !r.Forward {
		t.Fatalf("expected exit to forward LeaveScreen, got %+v", r)
	}
	if len(r.Msgs) != 1 {
		t.Fatalf("expected exactly one forwarded message, got %+v", r.Msgs)
	}
	leave, ok := r.Msgs[0].(wire.LeaveScreen)
	if !ok {
		t.Fatalf("expected LeaveScreen, got %T", r.Msgs[0])
	}
	if leave.Edge != wire.EdgeLeft || leave.Position.X != 0 || leave.Position.Y != 400 {
		t.Fatalf("unexpected LeaveScreen: %+v", leave)
	}
	if r.Warp {
		t.Fatalf("exit must not request a recenter warp")
	}

	st := m.State()
	if st.Kind != StateLocal {
		t.Fatalf("expected Local state after exit, got %+v", st)
	}

	// Subsequent local motion produces no traffic until a new edge is hit.
	r2 := m.HandleLocalMouseMove(960, 540)
	if r2.Forward || r2.Warp {
		t.Fatalf("expected no traffic in Local state away from any edge, got %+v", r2)
	}
}

func TestEdgeOccupancyReplacesNotRejects(t *testing.T) {
	m := New(1920, 1080)
	m.RegisterEdge(wire.EdgeRight, "first", 1920, 1080)
	m.RegisterEdge(wire.EdgeRight, "second", 1280, 720)

	r := m.HandleLocalMouseMove(1918.1, 400)
	if !r.Forward || r.DeviceID != "second" {
		t.Fatalf("expected the newer registration to win the edge, got %+v", r)
	}
}

func TestDisconnectWhileFocusedRevertsWithoutLeaveScreen(t *testing.T) {
	m := newManagerWithRightPeer()
	enterRight(t, m)

	m.RemoveDevice("peer")

	st := m.State()
	if st.Kind != StateLocal {
		t.Fatalf("expected Local state after removing the focused device, got %+v", st)
	}

	// No edge bound anymore, so local motion at the old entry point stays local.
	r := m.HandleLocalMouseMove(1918.1, 400)
	if r.Forward {
		t.Fatalf("expected no forward after the binding was dropped, got %+v", r)
	}
}

func TestNonMotionDroppedWhileLocal(t *testing.T) {
	m := newManagerWithRightPeer()
	r := m.HandleNonMotion(wire.KeyEvent{Key: wire.KeyA, Action: wire.KeyPress})
	if r.Forward {
		t.Fatalf("expected non-motion events to drop while Local, got %+v", r)
	}
}

func TestNonMotionForwardedWhileRemote(t *testing.T) {
	m := newManagerWithRightPeer()
	enterRight(t, m)
	r := m.HandleNonMotion(wire.KeyEvent{Key: wire.KeyA, Action: wire.KeyPress})
	if !r.Forward || r.DeviceID != "peer" {
		t.Fatalf("expected key event to forward to the focus device, got %+v", r)
	}
}
