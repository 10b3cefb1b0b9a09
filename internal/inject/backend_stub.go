//go:build !linux

package inject

import (
	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// StubBackend logs every call instead of touching the OS. It exists so the
// peer binary links and runs on any platform even though real input
// synthesis is only implemented for Linux uinput (see backend_uinput_linux.go).
type StubBackend struct {
	log bool
}

// OpenStub returns a backend that never fails.
func OpenStub() (*StubBackend, error) { return &StubBackend{log: true}, nil }

// OpenBackend returns the platform injection backend; on non-Linux builds
// that is always the logging stub.
func OpenBackend() (Backend, error) { return OpenStub() }

func (b *StubBackend) MoveAbs(x, y float64) error {
	logging.Component("inject").Debug("stub_move_abs", "x", x, "y", y)
	return nil
}

func (b *StubBackend) MoveRel(dx, dy float64) error {
	logging.Component("inject").Debug("stub_move_rel", "dx", dx, "dy", dy)
	return nil
}

func (b *StubBackend) Button(btn wire.MouseButton, action wire.ButtonAction) error {
	logging.Component("inject").Debug("stub_button", "button", btn, "action", action)
	return nil
}

func (b *StubBackend) Key(code wire.KeyCode, action wire.KeyAction) error {
	logging.Component("inject").Debug("stub_key", "code", code, "action", action)
	return nil
}

func (b *StubBackend) Scroll(dx, dy float64) error {
	logging.Component("inject").Debug("stub_scroll", "dx", dx, "dy", dy)
	return nil
}

func (b *StubBackend) Close() error { return nil }
