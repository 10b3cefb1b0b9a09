// Package focus owns the controller's single FocusState and EdgeDeviceMap: the
// state machine that decides, for every local cursor move and every
// non-motion input event, whether it stays local, crosses onto a peer, or
// comes back. All operations are serialized under a single mutex (teacher
// precedent: Server.mu / Hub.mu guarding shared fields).
package focus

import (
	"sync"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// DefaultThreshold is the edge-detection hysteresis band in pixels.
const DefaultThreshold = 2.0

// StateKind discriminates FocusState.
type StateKind int

const (
	StateLocal StateKind = iota
	StateRemote
)

// FocusState is the controller's single source of truth for where input is
// currently routed.
type FocusState struct {
	Kind        StateKind
	DeviceID    string
	VX, VY      float64
	RemoteW     float64
	RemoteH     float64
	EnteredEdge wire.Edge
}

type binding struct {
	deviceID string
	w, h     float64
}

// Action names the kinds of work a routing verdict can ask of the caller.
// RouteResult itself carries them as its Forward and Warp flags.
type Action int

const (
	// ActionNone means drop the event; there is nothing to do.
	ActionNone Action = iota
	// ActionForward means send Msgs to DeviceID.
	ActionForward
	// ActionWarp means recenter the physical cursor at (WarpX, WarpY); may be
	// combined with a forward in the same RouteResult.
	ActionWarp
)

// RouteResult is the focus manager's verdict for one input event. Forward
// and Warp are independent: a single event may produce neither, either, or
// both (remote motion forwards a MouseDelta AND asks for a recenter warp).
// Msgs is forwarded to DeviceID in order; entry produces two (EnterScreen
// then an absolute MouseMove, since the peer treats EnterScreen as a
// no-op placement and only MouseMove actually positions its cursor).
type RouteResult struct {
	Forward  bool
	DeviceID string
	Msgs     []wire.Message

	Warp bool
	WarpX, WarpY float64
}

// Manager is the controller's focus state machine.
type Manager struct {
	mu sync.Mutex

	screenW, screenH float64
	cx, cy           float64
	threshold        float64

	state FocusState
	edges map[wire.Edge]binding
}

// New returns a Manager for a controller screen of the given size, using the
// default edge threshold.
func New(screenW, screenH float64) *Manager {
	return NewWithThreshold(screenW, screenH, DefaultThreshold)
}

// NewWithThreshold is New with an explicit edge threshold, mainly useful in
// tests that need a wider or narrower band than the default.
func NewWithThreshold(screenW, screenH, threshold float64) *Manager {
	return &Manager{
		screenW:   screenW,
		screenH:   screenH,
		cx:        screenW / 2,
		cy:        screenH / 2,
		threshold: threshold,
		state:     FocusState{Kind: StateLocal},
		edges:     make(map[wire.Edge]binding),
	}
}

// Center returns the controller screen's center point, where the physical
// cursor is warped to whenever focus is remote.
func (m *Manager) Center() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cx, m.cy
}

// State returns a copy of the current focus state.
func (m *Manager) State() FocusState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RegisterEdge binds deviceID to edge E with the peer's screen size. A
// second registration on an already-bound edge replaces the prior binding
// (edge occupancy is "replace", not "reject" — see DESIGN.md).
func (m *Manager) RegisterEdge(e wire.Edge, deviceID string, w, h float64) {
	m.mu.Lock()
	prev, existed := m.edges[e]
	m.edges[e] = binding{deviceID: deviceID, w: w, h: h}
	m.mu.Unlock()

	if existed && prev.deviceID != deviceID {
		metrics.IncEdgeRebind()
		logging.Component("focus").Warn("edge_rebound", "edge", e.String(), "previous", prev.deviceID, "device_id", deviceID)
	}
}

// RemoveDevice drops every edge binding referencing id and, if id currently
// holds focus, reverts to Local without emitting LeaveScreen (the peer is
// already gone).
func (m *Manager) RemoveDevice(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e, b := range m.edges {
		if b.deviceID == id {
			delete(m.edges, e)
		}
	}
	if m.state.Kind == StateRemote && m.state.DeviceID == id {
		m.state = FocusState{Kind: StateLocal}
	}
}

// detectEdge classifies an absolute local cursor position, honoring the
// Left, Right, Top, Bottom tie-break order.
func (m *Manager) detectEdge(x, y float64) (wire.Edge, bool) {
	switch {
	case x <= m.threshold:
		return wire.EdgeLeft, true
	case x >= m.screenW-m.threshold:
		return wire.EdgeRight, true
	case y <= m.threshold:
		return wire.EdgeTop, true
	case y >= m.screenH-m.threshold:
		return wire.EdgeBottom, true
	default:
		return 0, false
	}
}

// entryPosition projects the controller-relative touch point onto the
// corresponding edge of the remote screen.
func entryPosition(e wire.Edge, x, y, screenW, screenH, remoteW, remoteH float64) (float64, float64) {
	switch e {
	case wire.EdgeRight:
		return 0, y * remoteH / screenH
	case wire.EdgeLeft:
		return remoteW, y * remoteH / screenH
	case wire.EdgeBottom:
		return x * remoteW / screenW, 0
	case wire.EdgeTop:
		return x * remoteW / screenW, remoteH
	default:
		return 0, 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HandleLocalMouseMove processes an absolute local cursor position and
// returns the routing verdict.
func (m *Manager) HandleLocalMouseMove(x, y float64) RouteResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Kind == StateLocal {
		return m.enterFromLocal(x, y)
	}
	return m.moveWithinRemote(x, y)
}

func (m *Manager) enterFromLocal(x, y float64) RouteResult {
	e, ok := m.detectEdge(x, y)
	if !ok {
		return RouteResult{}
	}
	b, ok := m.edges[e]
	if !ok {
		return RouteResult{}
	}

	vx, vy := entryPosition(e, x, y, m.screenW, m.screenH, b.w, b.h)
	m.state = FocusState{
		Kind:        StateRemote,
		DeviceID:    b.deviceID,
		VX:          vx,
		VY:          vy,
		RemoteW:     b.w,
		RemoteH:     b.h,
		EnteredEdge: e,
	}
	metrics.IncFocusTransition("to_peer")
	logging.Component("focus").Info("focus_to_peer", "device_id", b.deviceID, "edge", e.String())

	return RouteResult{
		Forward:  true,
		DeviceID: b.deviceID,
		Msgs: []wire.Message{
			wire.EnterScreen{Position: wire.Position{X: vx, Y: vy}},
			wire.MouseMove{X: vx, Y: vy},
		},
		Warp:  true,
		WarpX: m.cx,
		WarpY: m.cy,
	}
}

func (m *Manager) moveWithinRemote(x, y float64) RouteResult {
	dx, dy := x-m.cx, y-m.cy
	if dx == 0 && dy == 0 {
		// Echo of the warp-to-center the router just issued.
		return RouteResult{}
	}

	vx := clamp(m.state.VX+dx, 0, m.state.RemoteW)
	vy := clamp(m.state.VY+dy, 0, m.state.RemoteH)

	if onOppositeEdge(m.state.EnteredEdge, vx, vy, m.state.RemoteW, m.state.RemoteH) {
		opposite := m.state.EnteredEdge.Opposite()
		deviceID := m.state.DeviceID
		m.state = FocusState{Kind: StateLocal}
		metrics.IncFocusTransition("to_controller")
		logging.Component("focus").Info("focus_to_controller", "device_id", deviceID, "edge", opposite.String())
		return RouteResult{
			Forward:  true,
			DeviceID: deviceID,
			Msgs:     []wire.Message{wire.LeaveScreen{Edge: opposite, Position: wire.Position{X: vx, Y: vy}}},
		}
	}

	m.state.VX, m.state.VY = vx, vy
	return RouteResult{
		Forward:  true,
		DeviceID: m.state.DeviceID,
		Msgs:     []wire.Message{wire.MouseDelta{DX: dx, DY: dy}},
		Warp:     true,
		WarpX:    m.cx,
		WarpY:    m.cy,
	}
}

// onOppositeEdge reports whether (vx, vy) has reached the far edge of the
// remote screen relative to the one the cursor entered through.
func onOppositeEdge(entered wire.Edge, vx, vy, w, h float64) bool {
	switch entered.Opposite() {
	case wire.EdgeLeft:
		return vx <= 0
	case wire.EdgeRight:
		return vx >= w
	case wire.EdgeTop:
		return vy <= 0
	case wire.EdgeBottom:
		return vy >= h
	default:
		return false
	}
}

// HandleNonMotion routes a non-motion input or clipboard event: forwarded
// unchanged to the focus device while Remote, dropped entirely while Local.
func (m *Manager) HandleNonMotion(msg wire.Message) RouteResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Kind != StateRemote {
		return RouteResult{}
	}
	return RouteResult{Forward: true, DeviceID: m.state.DeviceID, Msgs: []wire.Message{msg}}
}
