//go:build linux

package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"runtime"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// Linux input_event type/code constants, from linux/input-event-codes.h.
// Mirrors the struct layout inject's uinput backend writes (same kernel
// ABI, read direction instead of write).
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	relX      = 0x00
	relY      = 0x01
	relWheel  = 0x08
	relHWheel = 0x06

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// OpenSource returns an EvdevSource reading from cfg.DevicePath.
func OpenSource(cfg Config) (Source, error) {
	if cfg.DevicePath == "" {
		return nil, fmt.Errorf("capture: DevicePath is required")
	}
	return EvdevSource{
		Path:    cfg.DevicePath,
		ScreenW: cfg.ScreenW,
		ScreenH: cfg.ScreenH,
		StartX:  cfg.ScreenW / 2,
		StartY:  cfg.ScreenH / 2,
	}, nil
}

// EvdevSource reads raw input_event records from a single /dev/input/eventN
// node and accumulates relative motion into a virtual absolute position,
// since a raw device node carries no cursor-position concept of its own.
// ScreenW/ScreenH bound that accumulation to the configured local screen.
type EvdevSource struct {
	Path    string
	ScreenW float64
	ScreenH float64
	StartX  float64
	StartY  float64
}

// Run opens Path and translates events until ctx is canceled or the device
// read fails. It locks its goroutine to a dedicated OS thread
// (runtime.LockOSThread) for its whole lifetime, matching the injection
// worker's single-thread discipline.
func (s EvdevSource) Run(ctx context.Context, out chan<- wire.Message) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(out)
	logger := logging.Component("capture")

	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("capture: open %s: %w", s.Path, err)
	}
	defer f.Close()
	logger.Info("evdev_open", "path", s.Path)

	go func() { <-ctx.Done(); _ = f.Close() }()

	x, y := s.StartX, s.StartY
	buf := make([]byte, 24)
	for {
		if _, err := readFull(f, buf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("capture: read %s: %w", s.Path, err)
		}
		typ := binary.LittleEndian.Uint16(buf[16:18])
		code := binary.LittleEndian.Uint16(buf[18:20])
		value := int32(binary.LittleEndian.Uint32(buf[20:24]))

		var msg wire.Message
		switch typ {
		case evRel:
			switch code {
			case relX:
				x = clampCoord(x+float64(value), s.ScreenW)
				msg = wire.MouseMove{X: x, Y: y}
			case relY:
				y = clampCoord(y+float64(value), s.ScreenH)
				msg = wire.MouseMove{X: x, Y: y}
			case relWheel:
				msg = wire.MouseScroll{DX: 0, DY: float64(value)}
			case relHWheel:
				msg = wire.MouseScroll{DX: float64(value), DY: 0}
			}
		case evKey:
			if btn, ok := mouseButtonFromCode(code); ok {
				action := wire.ButtonRelease
				if value != 0 {
					action = wire.ButtonPress
				}
				msg = wire.MouseButtonEvent{Button: btn, Action: action}
			} else if key, ok := keyCodeFromLinux(code); ok {
				action := wire.KeyRelease
				if value != 0 {
					action = wire.KeyPress
				}
				msg = wire.KeyEvent{Key: key, Action: action}
			}
		case evSyn:
			continue
		}
		if msg == nil {
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("capture: short read")
		}
	}
	return total, nil
}

func clampCoord(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func mouseButtonFromCode(code uint16) (wire.MouseButton, bool) {
	switch code {
	case btnLeft:
		return wire.MouseLeft, true
	case btnRight:
		return wire.MouseRight, true
	case btnMiddle:
		return wire.MouseMiddle, true
	default:
		return 0, false
	}
}
