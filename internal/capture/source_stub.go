//go:build !linux

package capture

import (
	"context"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// StubSource logs that capture is unavailable and otherwise behaves like
// NullSource, so the controller binary links and runs on any platform even
// though real input listening is only implemented for Linux evdev (see
// source_evdev_linux.go).
type StubSource struct{}

func (StubSource) Run(ctx context.Context, out chan<- wire.Message) error {
	defer close(out)
	logging.Component("capture").Warn("capture_unsupported_platform")
	<-ctx.Done()
	return ctx.Err()
}

// OpenSource returns the platform capture source; on non-Linux builds that
// is always the logging stub.
func OpenSource(Config) (Source, error) { return StubSource{}, nil }
