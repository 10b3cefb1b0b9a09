package wire

// DeviceId is an opaque, process-unique identifier (e.g. a hostname).
type DeviceId string

// Message is the sealed set of protocol variants exchanged between a
// controller and its peers. It plays the role of the tagged union described
// by the protocol: every concrete type below is the only thing that can
// satisfy it.
type Message interface {
	messageKind() Kind
}

// Kind is the wire discriminant for a Message. Ordering here is part of the
// wire format and must never change for released values.
type Kind uint8

const (
	KindHello Kind = iota
	KindWelcome
	KindBye
	KindMouseMove
	KindMouseDelta
	KindMouseButtonEvent
	KindMouseScroll
	KindKeyEvent
	KindEnterScreen
	KindLeaveScreen
	KindClipboardText
	KindClipboardImage
	KindPing
	KindPong
)

// Hello announces a device's identity and screen geometry. Sent by the
// dialer first during greeting, and by the acceptor as the first frame of
// its own Hello when it initiates (the controller never dials, so in
// practice this is always the peer's opening frame).
type Hello struct {
	DeviceID   DeviceId     `msgpack:"device_id"`
	DeviceName string       `msgpack:"device_name"`
	Screens    []ScreenInfo `msgpack:"screens"`
}

func (Hello) messageKind() Kind { return KindHello }

// Welcome is the acceptor's reply to a Hello, carrying its own identity.
type Welcome struct {
	DeviceID   DeviceId     `msgpack:"device_id"`
	DeviceName string       `msgpack:"device_name"`
	Screens    []ScreenInfo `msgpack:"screens"`
}

func (Welcome) messageKind() Kind { return KindWelcome }

// Bye announces a graceful, voluntary disconnect.
type Bye struct {
	DeviceID DeviceId `msgpack:"device_id"`
}

func (Bye) messageKind() Kind { return KindBye }

// MouseMove carries an absolute cursor position.
type MouseMove struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
}

func (MouseMove) messageKind() Kind { return KindMouseMove }

// MouseDelta carries relative cursor motion, used while a peer holds focus.
type MouseDelta struct {
	DX float64 `msgpack:"dx"`
	DY float64 `msgpack:"dy"`
}

func (MouseDelta) messageKind() Kind { return KindMouseDelta }

// MouseButtonEvent carries a mouse button press or release.
type MouseButtonEvent struct {
	Button MouseButton  `msgpack:"button"`
	Action ButtonAction `msgpack:"action"`
}

func (MouseButtonEvent) messageKind() Kind { return KindMouseButtonEvent }

// MouseScroll carries a scroll wheel delta.
type MouseScroll struct {
	DX float64 `msgpack:"dx"`
	DY float64 `msgpack:"dy"`
}

func (MouseScroll) messageKind() Kind { return KindMouseScroll }

// KeyEvent carries a keyboard press or release.
type KeyEvent struct {
	Key    KeyCode   `msgpack:"key"`
	Action KeyAction `msgpack:"action"`
}

func (KeyEvent) messageKind() Kind { return KindKeyEvent }

// EnterScreen notifies a peer that it has just gained focus.
type EnterScreen struct {
	ScreenID uint32   `msgpack:"screen_id"`
	Position Position `msgpack:"position"`
}

func (EnterScreen) messageKind() Kind { return KindEnterScreen }

// LeaveScreen notifies a peer that focus has just returned to the
// controller, and through which edge the virtual cursor exited.
type LeaveScreen struct {
	ScreenID uint32   `msgpack:"screen_id"`
	Edge     Edge     `msgpack:"edge"`
	Position Position `msgpack:"position"`
}

func (LeaveScreen) messageKind() Kind { return KindLeaveScreen }

// ClipboardText carries a text clipboard payload in either direction.
type ClipboardText struct {
	Text string `msgpack:"text"`
}

func (ClipboardText) messageKind() Kind { return KindClipboardText }

// ClipboardImage carries a raw image clipboard payload. Receivers log it;
// writing it to the OS clipboard is not implemented (see DESIGN.md).
type ClipboardImage struct {
	Width  uint32 `msgpack:"width"`
	Height uint32 `msgpack:"height"`
	Data   []byte `msgpack:"data"`
}

func (ClipboardImage) messageKind() Kind { return KindClipboardImage }

// Ping is a heartbeat probe carrying a sequence number.
type Ping struct {
	Seq uint64 `msgpack:"seq"`
}

func (Ping) messageKind() Kind { return KindPing }

// Pong answers a Ping with the same sequence number.
type Pong struct {
	Seq uint64 `msgpack:"seq"`
}

func (Pong) messageKind() Kind { return KindPong }
