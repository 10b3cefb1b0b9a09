// Package router sits between the capture/clipboard adapters and the focus
// manager: it is the generalized form of the teacher's reader goroutine
// (startReader), which drains one input source and calls a single injected
// Send function per decoded unit. Here the "send function" is the focus
// manager's routing decision, fanned out to a peer queue or a local warp.
package router

import (
	"context"
	"log/slog"

	"github.com/kvmshare/kvmshare/internal/focus"
	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/registry"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// PeerSender is the subset of *registry.Registry the router needs: look up a
// peer's outbound queue by device_id. Kept as an interface so router tests
// don't need a live registry.
type PeerSender interface {
	Send(deviceID string, msg wire.Message) bool
}

// RegistryAdapter adapts *registry.Registry to PeerSender.
type RegistryAdapter struct {
	Reg *registry.Registry
}

func (a RegistryAdapter) Send(deviceID string, msg wire.Message) bool {
	p, ok := a.Reg.Get(deviceID)
	if !ok {
		return false
	}
	return p.Send(msg)
}

// Warper performs the local cursor recenter; backed in production by the
// injection adapter's MoveAbs.
type Warper interface {
	MoveAbs(x, y float64)
}

// Router owns no state of its own beyond wiring: every decision comes from
// the focus manager.
type Router struct {
	manager *focus.Manager
	peers   PeerSender
	warp    Warper
}

// New returns a Router that consults manager for every event, forwards
// through peers, and recenters through warp.
func New(manager *focus.Manager, peers PeerSender, warp Warper) *Router {
	return &Router{manager: manager, peers: peers, warp: warp}
}

// RunCapture drains a capture adapter's normalized event stream until ctx is
// canceled or the channel closes. Mouse motion is routed through
// HandleLocalMouseMove; everything else goes through HandleNonMotion.
func (r *Router) RunCapture(ctx context.Context, events <-chan wire.Message) {
	logger := logging.Component("router")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			var result focus.RouteResult
			if mm, isMove := msg.(wire.MouseMove); isMove {
				result = r.manager.HandleLocalMouseMove(mm.X, mm.Y)
			} else {
				result = r.manager.HandleNonMotion(msg)
			}
			r.apply(logger, result)
		}
	}
}

// RunClipboard drains locally-observed clipboard text changes. Each change
// is routed exactly like any other non-motion event: dropped while Local,
// forwarded to the focus device while Remote.
func (r *Router) RunClipboard(ctx context.Context, texts <-chan string) {
	logger := logging.Component("router")
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-texts:
			if !ok {
				return
			}
			result := r.manager.HandleNonMotion(wire.ClipboardText{Text: text})
			if result.Forward {
				metrics.IncClipboardSync("text")
			}
			r.apply(logger, result)
		}
	}
}

func (r *Router) apply(logger *slog.Logger, result focus.RouteResult) {
	if result.Forward {
		for _, msg := range result.Msgs {
			// frames_tx is counted by the connection's writer once the frame
			// is encoded and written; only drops are counted here.
			if !r.peers.Send(result.DeviceID, msg) {
				metrics.IncFrameDropped()
				logger.Debug("peer_queue_full", "device_id", result.DeviceID)
			}
		}
	}
	if result.Warp {
		r.warp.MoveAbs(result.WarpX, result.WarpY)
	}
}

func kindLabel(msg wire.Message) string {
	switch msg.(type) {
	case wire.Hello:
		return "hello"
	case wire.Welcome:
		return "welcome"
	case wire.Bye:
		return "bye"
	case wire.MouseMove:
		return "mouse_move"
	case wire.MouseDelta:
		return "mouse_delta"
	case wire.MouseButtonEvent:
		return "mouse_button"
	case wire.MouseScroll:
		return "mouse_scroll"
	case wire.KeyEvent:
		return "key_event"
	case wire.EnterScreen:
		return "enter_screen"
	case wire.LeaveScreen:
		return "leave_screen"
	case wire.ClipboardText:
		return "clipboard_text"
	case wire.ClipboardImage:
		return "clipboard_image"
	case wire.Ping:
		return "ping"
	case wire.Pong:
		return "pong"
	default:
		return "unknown"
	}
}
