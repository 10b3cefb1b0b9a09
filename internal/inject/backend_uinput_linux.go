//go:build linux

package inject

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kvmshare/kvmshare/internal/wire"
)

// uinput ioctl numbers and event codes, per linux/uinput.h and
// linux/input-event-codes.h. Grounded on internal/socketcan/device.go's
// raw-syscall device pattern: open a kernel device node, configure it via
// ioctl, then push structured writes to the fd.
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0

	relX      = 0x00
	relY      = 0x01
	relWheel  = 0x08
	relHWheel = 0x06

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnSide   = 0x113
	btnExtra  = 0x114
)

// UinputBackend drives /dev/uinput. It is not safe for concurrent use; the
// Injector's single worker goroutine is the only caller.
type UinputBackend struct {
	f *os.File
}

// OpenUinput creates a virtual mouse+keyboard device and registers it with
// the kernel.
func OpenUinput() (*UinputBackend, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}
	b := &UinputBackend{f: f}
	if err := b.configure(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return b, nil
}

func (b *UinputBackend) ioctl(req, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), req, arg); errno != 0 {
		return errno
	}
	return nil
}

func (b *UinputBackend) configure() error {
	if err := b.ioctl(uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("set EV_KEY: %w", err)
	}
	if err := b.ioctl(uiSetEvBit, evRel); err != nil {
		return fmt.Errorf("set EV_REL: %w", err)
	}
	for _, code := range []uintptr{relX, relY, relHWheel, relWheel} {
		if err := b.ioctl(uiSetRelBit, code); err != nil {
			return fmt.Errorf("set REL bit %d: %w", code, err)
		}
	}
	for _, code := range allKeyCodes() {
		if err := b.ioctl(uiSetKeyBit, uintptr(code)); err != nil {
			return fmt.Errorf("set KEY bit %d: %w", code, err)
		}
	}
	for _, code := range []uintptr{btnLeft, btnRight, btnMiddle, btnSide, btnExtra} {
		if err := b.ioctl(uiSetKeyBit, code); err != nil {
			return fmt.Errorf("set BTN bit %d: %w", code, err)
		}
	}

	dev := newUinputUserDev("kvmshare-virtual-input")
	if _, err := b.f.Write(dev); err != nil {
		return fmt.Errorf("write uinput_user_dev: %w", err)
	}
	if err := b.ioctl(uiDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

// newUinputUserDev packs the legacy struct uinput_user_dev: a fixed-size
// name, an input_id, an ff_effects_max, and four zeroed ABS_CNT int32 arrays
// that this device does not use.
func newUinputUserDev(name string) []byte {
	const absCnt = 64
	var buf bytes.Buffer
	nameField := make([]byte, 80)
	copy(nameField, name)
	buf.Write(nameField)
	binary.Write(&buf, binary.LittleEndian, uint16(0x03)) // bustype: BUS_USB
	binary.Write(&buf, binary.LittleEndian, uint16(0x1))  // vendor
	binary.Write(&buf, binary.LittleEndian, uint16(0x1))  // product
	binary.Write(&buf, binary.LittleEndian, uint16(0x1))  // version
	binary.Write(&buf, binary.LittleEndian, uint32(0))    // ff_effects_max
	zero := make([]int32, absCnt)
	for i := 0; i < 4; i++ {
		binary.Write(&buf, binary.LittleEndian, zero)
	}
	return buf.Bytes()
}

func (b *UinputBackend) emit(typ, code uint16, value int32) error {
	var buf bytes.Buffer
	now := time.Now()
	binary.Write(&buf, binary.LittleEndian, int64(now.Unix()))
	binary.Write(&buf, binary.LittleEndian, int64(now.Nanosecond()/1000))
	binary.Write(&buf, binary.LittleEndian, typ)
	binary.Write(&buf, binary.LittleEndian, code)
	binary.Write(&buf, binary.LittleEndian, value)
	_, err := b.f.Write(buf.Bytes())
	return err
}

func (b *UinputBackend) syn() error { return b.emit(evSyn, synReport, 0) }

// MoveAbs is approximated as a large relative jump: uinput's legacy device
// path (no EV_ABS bits registered here) only supports relative motion, so
// the peer client's absolute MouseMove is not round-trippable to pixel
// precision without an ABS-capable device; callers needing exact placement
// should prefer MouseDelta, which this backend honors exactly.
func (b *UinputBackend) MoveAbs(x, y float64) error {
	return b.MoveRel(x, y)
}

func (b *UinputBackend) MoveRel(dx, dy float64) error {
	if dx != 0 {
		if err := b.emit(evRel, relX, int32(dx)); err != nil {
			return err
		}
	}
	if dy != 0 {
		if err := b.emit(evRel, relY, int32(dy)); err != nil {
			return err
		}
	}
	return b.syn()
}

func (b *UinputBackend) Button(btn wire.MouseButton, action wire.ButtonAction) error {
	code, ok := mouseButtonCode(btn)
	if !ok {
		return fmt.Errorf("unsupported mouse button %d", btn)
	}
	value := int32(0)
	if action == wire.ButtonPress {
		value = 1
	}
	if err := b.emit(evKey, code, value); err != nil {
		return err
	}
	return b.syn()
}

func (b *UinputBackend) Key(code wire.KeyCode, action wire.KeyAction) error {
	linuxCode, ok := keyCodeToLinux(code)
	if !ok {
		return fmt.Errorf("unsupported key code %d", code)
	}
	value := int32(0)
	if action == wire.KeyPress {
		value = 1
	}
	if err := b.emit(evKey, linuxCode, value); err != nil {
		return err
	}
	return b.syn()
}

func (b *UinputBackend) Scroll(dx, dy float64) error {
	if dy != 0 {
		if err := b.emit(evRel, relWheel, int32(dy)); err != nil {
			return err
		}
	}
	if dx != 0 {
		if err := b.emit(evRel, relHWheel, int32(dx)); err != nil {
			return err
		}
	}
	return b.syn()
}

func (b *UinputBackend) Close() error {
	_ = b.ioctl(uiDevDestroy, 0)
	return b.f.Close()
}

// OpenBackend returns the platform injection backend.
func OpenBackend() (Backend, error) { return OpenUinput() }

func mouseButtonCode(btn wire.MouseButton) (uint16, bool) {
	switch btn {
	case wire.MouseLeft:
		return btnLeft, true
	case wire.MouseRight:
		return btnRight, true
	case wire.MouseMiddle:
		return btnMiddle, true
	case wire.MouseBack:
		return btnSide, true
	case wire.MouseForward:
		return btnExtra, true
	default:
		return 0, false
	}
}
