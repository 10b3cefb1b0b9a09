//go:build linux

package capture

import "github.com/kvmshare/kvmshare/internal/wire"

// Linux key event codes, from linux/input-event-codes.h. Kept as a separate
// reverse table from inject's keyCodeTable (code -> wire.KeyCode here,
// wire.KeyCode -> code there) since the two packages translate in opposite
// directions and neither imports the other.
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

var linuxKeyCodeTable = map[uint16]wire.KeyCode{
	keyA: wire.KeyA, keyB: wire.KeyB, keyC: wire.KeyC, keyD: wire.KeyD, keyE: wire.KeyE,
	keyF: wire.KeyF, keyG: wire.KeyG, keyH: wire.KeyH, keyI: wire.KeyI, keyJ: wire.KeyJ,
	keyK: wire.KeyK, keyL: wire.KeyL, keyM: wire.KeyM, keyN: wire.KeyN, keyO: wire.KeyO,
	keyP: wire.KeyP, keyQ: wire.KeyQ, keyR: wire.KeyR, keyS: wire.KeyS, keyT: wire.KeyT,
	keyU: wire.KeyU, keyV: wire.KeyV, keyW: wire.KeyW, keyX: wire.KeyX, keyY: wire.KeyY,
	keyZ: wire.KeyZ,

	key0: wire.KeyNum0, key1: wire.KeyNum1, key2: wire.KeyNum2, key3: wire.KeyNum3,
	key4: wire.KeyNum4, key5: wire.KeyNum5, key6: wire.KeyNum6, key7: wire.KeyNum7,
	key8: wire.KeyNum8, key9: wire.KeyNum9,

	keyF1: wire.KeyF1, keyF2: wire.KeyF2, keyF3: wire.KeyF3, keyF4: wire.KeyF4,
	keyF5: wire.KeyF5, keyF6: wire.KeyF6, keyF7: wire.KeyF7, keyF8: wire.KeyF8,
	keyF9: wire.KeyF9, keyF10: wire.KeyF10, keyF11: wire.KeyF11, keyF12: wire.KeyF12,

	keyLeftShift: wire.KeyLeftShift, keyRightShift: wire.KeyRightShift,
	keyLeftCtrl: wire.KeyLeftCtrl, keyRightCtrl: wire.KeyRightCtrl,
	keyLeftAlt: wire.KeyLeftAlt, keyRightAlt: wire.KeyRightAlt,
	keyLeftMeta: wire.KeyLeftMeta, keyRightMeta: wire.KeyRightMeta,

	keyEsc: wire.KeyEscape, keyTab: wire.KeyTab, keyCapsLock: wire.KeyCapsLock,
	keySpace: wire.KeySpace, keyEnter: wire.KeyEnter, keyBackspace: wire.KeyBackspace,
	keyDelete: wire.KeyDelete, keyInsert: wire.KeyInsert, keyHome: wire.KeyHome,
	keyEnd: wire.KeyEnd, keyPageUp: wire.KeyPageUp, keyPageDown: wire.KeyPageDown,
	keyArrowUp: wire.KeyArrowUp, keyArrowDown: wire.KeyArrowDown,
	keyArrowLeft: wire.KeyArrowLeft, keyArrowRight: wire.KeyArrowRight,
	keyPrintScr: wire.KeyPrintScreen, keyScrollLock: wire.KeyScrollLock, keyPause: wire.KeyPause,
}

func keyCodeFromLinux(code uint16) (wire.KeyCode, bool) {
	k, ok := linuxKeyCodeTable[code]
	return k, ok
}
