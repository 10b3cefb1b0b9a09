// Package capture normalizes local OS input into the protocol's Message
// catalogue. The router drains a Source's output channel and consults the
// focus manager for every event (teacher precedent: startReader draining a
// transport and calling a single per-frame handler).
package capture

import (
	"context"

	"github.com/kvmshare/kvmshare/internal/wire"
)

// Source emits normalized local input events until ctx is canceled or the
// source fails. Run owns out and must close it before returning so the
// router's range loop terminates.
type Source interface {
	Run(ctx context.Context, out chan<- wire.Message) error
}

// Config carries the parameters a platform capture backend needs to start.
// Fields unused on a given platform are ignored.
type Config struct {
	DevicePath string
	ScreenW    float64
	ScreenH    float64
}

// ChanSource relays externally-produced messages, used by tests and by any
// future capture backend that prefers to push from its own goroutine rather
// than implement Run directly.
type ChanSource struct {
	In <-chan wire.Message
}

// NewChanSource wraps in as a Source.
func NewChanSource(in <-chan wire.Message) ChanSource { return ChanSource{In: in} }

func (s ChanSource) Run(ctx context.Context, out chan<- wire.Message) error {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.In:
			if !ok {
				return nil
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// NullSource never emits; it exists so a controller can run with input
// capture disabled (e.g. under test) without a nil Source check at every
// call site.
type NullSource struct{}

func (NullSource) Run(ctx context.Context, out chan<- wire.Message) error {
	defer close(out)
	<-ctx.Done()
	return ctx.Err()
}
