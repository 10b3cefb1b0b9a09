package wire

// KeyCode is a platform-independent key identifier. Named keys occupy the
// low range; any code at or above unknownBase carries a raw platform
// scancode that did not map to a named key (the wire equivalent of the
// catalogue's `Unknown(u32)` variant).
type KeyCode uint32

const unknownBase KeyCode = 1 << 20

// UnknownKey wraps a raw platform key code that has no named equivalent.
func UnknownKey(raw uint32) KeyCode { return unknownBase + KeyCode(raw) }

// IsUnknown reports whether k carries a raw platform code instead of a name.
func (k KeyCode) IsUnknown() bool { return k >= unknownBase }

// RawCode returns the platform scancode carried by an unknown key. The
// result is meaningless unless IsUnknown reports true.
func (k KeyCode) RawCode() uint32 { return uint32(k - unknownBase) }

const (
	KeyA KeyCode = iota + 1
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	KeyNum0
	KeyNum1
	KeyNum2
	KeyNum3
	KeyNum4
	KeyNum5
	KeyNum6
	KeyNum7
	KeyNum8
	KeyNum9

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyLeftShift
	KeyRightShift
	KeyLeftCtrl
	KeyRightCtrl
	KeyLeftAlt
	KeyRightAlt
	KeyLeftMeta
	KeyRightMeta

	KeyEscape
	KeyTab
	KeyCapsLock
	KeySpace
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyPrintScreen
	KeyScrollLock
	KeyPause
)

// MouseButton identifies a physical mouse button.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	MouseBack
	MouseForward
)

// KeyAction is the direction of a key transition.
type KeyAction uint8

const (
	KeyPress KeyAction = iota
	KeyRelease
)

// ButtonAction is the direction of a mouse button transition.
type ButtonAction uint8

const (
	ButtonPress ButtonAction = iota
	ButtonRelease
)
