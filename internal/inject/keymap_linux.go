//go:build linux

package inject

import "github.com/kvmshare/kvmshare/internal/wire"

// Linux key event codes, from linux/input-event-codes.h.
const (
	keyEsc        = 1
	key1          = 2
	key2          = 3
	key3          = 4
	key4          = 5
	key5          = 6
	key6          = 7
	key7          = 8
	key8          = 9
	key9          = 10
	key0          = 11
	keyTab        = 15
	keyQ          = 16
	keyW          = 17
	keyE          = 18
	keyR          = 19
	keyT          = 20
	keyY          = 21
	keyU          = 22
	keyI          = 23
	keyO          = 24
	keyP          = 25
	keyEnter      = 28
	keyLeftCtrl   = 29
	keyA          = 30
	keyS          = 31
	keyD          = 32
	keyF          = 33
	keyG          = 34
	keyH          = 35
	keyJ          = 36
	keyK          = 37
	keyL          = 38
	keyLeftShift  = 42
	keyZ          = 44
	keyX          = 45
	keyC          = 46
	keyV          = 47
	keyB          = 48
	keyN          = 49
	keyM          = 50
	keyRightShift = 54
	keyLeftAlt    = 56
	keySpace      = 57
	keyCapsLock   = 58
	keyF1         = 59
	keyF2         = 60
	keyF3         = 61
	keyF4         = 62
	keyF5         = 63
	keyF6         = 64
	keyF7         = 65
	keyF8         = 66
	keyF9         = 67
	keyF10        = 68
	keyF11        = 87
	keyF12        = 88
	keyHome       = 102
	keyArrowUp    = 103
	keyPageUp     = 104
	keyArrowLeft  = 105
	keyArrowRight = 106
	keyEnd        = 107
	keyArrowDown  = 108
	keyPageDown   = 109
	keyInsert     = 110
	keyDelete     = 111
	keyRightCtrl  = 97
	keyRightAlt   = 100
	keyPause      = 119
	keyScrollLock = 70
	keyPrintScr   = 99
	keyLeftMeta   = 125
	keyRightMeta  = 126
	keyBackspace  = 14
)

var keyCodeTable = map[wire.KeyCode]uint16{
	wire.KeyA: keyA, wire.KeyB: keyB, wire.KeyC: keyC, wire.KeyD: keyD, wire.KeyE: keyE,
	wire.KeyF: keyF, wire.KeyG: keyG, wire.KeyH: keyH, wire.KeyI: keyI, wire.KeyJ: keyJ,
	wire.KeyK: keyK, wire.KeyL: keyL, wire.KeyM: keyM, wire.KeyN: keyN, wire.KeyO: keyO,
	wire.KeyP: keyP, wire.KeyQ: keyQ, wire.KeyR: keyR, wire.KeyS: keyS, wire.KeyT: keyT,
	wire.KeyU: keyU, wire.KeyV: keyV, wire.KeyW: keyW, wire.KeyX: keyX, wire.KeyY: keyY,
	wire.KeyZ: keyZ,

	wire.KeyNum0: key0, wire.KeyNum1: key1, wire.KeyNum2: key2, wire.KeyNum3: key3,
	wire.KeyNum4: key4, wire.KeyNum5: key5, wire.KeyNum6: key6, wire.KeyNum7: key7,
	wire.KeyNum8: key8, wire.KeyNum9: key9,

	wire.KeyF1: keyF1, wire.KeyF2: keyF2, wire.KeyF3: keyF3, wire.KeyF4: keyF4,
	wire.KeyF5: keyF5, wire.KeyF6: keyF6, wire.KeyF7: keyF7, wire.KeyF8: keyF8,
	wire.KeyF9: keyF9, wire.KeyF10: keyF10, wire.KeyF11: keyF11, wire.KeyF12: keyF12,

	wire.KeyLeftShift: keyLeftShift, wire.KeyRightShift: keyRightShift,
	wire.KeyLeftCtrl: keyLeftCtrl, wire.KeyRightCtrl: keyRightCtrl,
	wire.KeyLeftAlt: keyLeftAlt, wire.KeyRightAlt: keyRightAlt,
	wire.KeyLeftMeta: keyLeftMeta, wire.KeyRightMeta: keyRightMeta,

	wire.KeyEscape: keyEsc, wire.KeyTab: keyTab, wire.KeyCapsLock: keyCapsLock,
	wire.KeySpace: keySpace, wire.KeyEnter: keyEnter, wire.KeyBackspace: keyBackspace,
	wire.KeyDelete: keyDelete, wire.KeyInsert: keyInsert, wire.KeyHome: keyHome,
	wire.KeyEnd: keyEnd, wire.KeyPageUp: keyPageUp, wire.KeyPageDown: keyPageDown,
	wire.KeyArrowUp: keyArrowUp, wire.KeyArrowDown: keyArrowDown,
	wire.KeyArrowLeft: keyArrowLeft, wire.KeyArrowRight: keyArrowRight,
	wire.KeyPrintScreen: keyPrintScr, wire.KeyScrollLock: keyScrollLock, wire.KeyPause: keyPause,
}

func keyCodeToLinux(k wire.KeyCode) (uint16, bool) {
	code, ok := keyCodeTable[k]
	return code, ok
}

func allKeyCodes() []uint16 {
	codes := make([]uint16, 0, len(keyCodeTable))
	for _, v := range keyCodeTable {
		codes = append(codes, v)
	}
	return codes
}
