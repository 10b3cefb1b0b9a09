// Package inject applies protocol input events to the local OS. All actual
// OS synthesis goes through a single fan-in worker goroutine (teacher
// precedent: transport.AsyncTx funnels all backend device writes through one
// goroutine so a platform handle, uinput fd or SocketCAN socket alike, is
// never touched concurrently).
package inject

import (
	"context"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/transport"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// Backend performs the actual OS-level synthesis. A //go:build linux
// implementation writes to /dev/uinput; a //go:build !linux stub logs a
// no-op so the rest of the tree compiles everywhere.
type Backend interface {
	MoveAbs(x, y float64) error
	MoveRel(dx, dy float64) error
	Button(btn wire.MouseButton, action wire.ButtonAction) error
	Key(code wire.KeyCode, action wire.KeyAction) error
	Scroll(dx, dy float64) error
	Close() error
}

// Injector is the async-safe façade the peer client and router hold: every
// call enqueues a command for the single backend worker and returns
// immediately. MoveAbs's signature (no error return) also satisfies
// router.Warper, letting the same injector serve as the controller's local
// cursor-recenter callback.
type Injector struct {
	backend Backend
	tx      *transport.AsyncTx[func() error]
}

// New wraps backend with a single-worker async queue of depth buf.
func New(parent context.Context, backend Backend, buf int) *Injector {
	logger := logging.Component("inject")
	i := &Injector{backend: backend}
	i.tx = transport.New(parent, buf, func(cmd func() error) error {
		return cmd()
	}, transport.Hooks[func() error]{
		OnError: func(_ func() error, err error) {
			metrics.IncInjectionError()
			metrics.IncError(metrics.ErrInjection)
			logger.Warn("injection_error", "error", err)
		},
	})
	return i
}

func (i *Injector) MoveAbs(x, y float64) {
	_ = i.tx.Send(func() error { return i.backend.MoveAbs(x, y) })
}

func (i *Injector) MoveRel(dx, dy float64) {
	_ = i.tx.Send(func() error { return i.backend.MoveRel(dx, dy) })
}

func (i *Injector) Button(btn wire.MouseButton, action wire.ButtonAction) {
	_ = i.tx.Send(func() error { return i.backend.Button(btn, action) })
}

func (i *Injector) Key(code wire.KeyCode, action wire.KeyAction) {
	_ = i.tx.Send(func() error { return i.backend.Key(code, action) })
}

func (i *Injector) Scroll(dx, dy float64) {
	_ = i.tx.Send(func() error { return i.backend.Scroll(dx, dy) })
}

// Apply dispatches one inbound protocol message to the matching backend
// call, mirroring the peer client's receive-loop table.
func (i *Injector) Apply(msg wire.Message) {
	switch m := msg.(type) {
	case wire.MouseMove:
		i.MoveAbs(m.X, m.Y)
	case wire.MouseDelta:
		i.MoveRel(m.DX, m.DY)
	case wire.MouseButtonEvent:
		i.Button(m.Button, m.Action)
	case wire.KeyEvent:
		i.Key(m.Key, m.Action)
	case wire.MouseScroll:
		i.Scroll(m.DX, m.DY)
	}
}

// Close stops the worker and releases the backend handle.
func (i *Injector) Close() error {
	i.tx.Close()
	return i.backend.Close()
}
