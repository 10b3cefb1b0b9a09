package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize is the cap on a single frame's payload (excluding the 4-byte
// length prefix itself).
const MaxFrameSize = 16 * 1024 * 1024

var (
	// ErrFrameTooLarge is fatal to the connection that produced or received it.
	ErrFrameTooLarge = errors.New("wire: frame too large")
	// ErrMalformedFrame is fatal to the connection that received it.
	ErrMalformedFrame = errors.New("wire: malformed frame")
	// ErrNeedMore means the decoder has a partial frame and must be fed more bytes.
	ErrNeedMore = errors.New("wire: need more data")
)

// EncodeFrame serializes msg as one length-prefixed frame:
// [u32 BE length][1-byte kind][msgpack payload]. It holds no state and is
// safe to call concurrently.
func EncodeFrame(msg Message) ([]byte, error) {
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	payload := make([]byte, 1+len(body))
	payload[0] = byte(msg.messageKind())
	copy(payload[1:], body)
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(payload), MaxFrameSize)
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	return frame, nil
}

// Decoder is a streaming frame decoder over an append-only byte buffer. It
// has no state beyond that buffer, so it is safe to instantiate one per
// connection and feed it bytes as they arrive off the wire, in any chunking.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty streaming decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Feed appends newly read bytes to the decoder's internal buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next attempts to decode one frame from the buffered bytes. It returns
// ErrNeedMore when the buffer holds a partial frame; callers should Feed more
// data and retry. ErrFrameTooLarge and ErrMalformedFrame are fatal: the
// connection that produced them must be torn down.
func (d *Decoder) Next() (Message, error) {
	if len(d.buf) < 4 {
		return nil, ErrNeedMore
	}
	length := binary.BigEndian.Uint32(d.buf[:4])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, length, MaxFrameSize)
	}
	if uint32(len(d.buf)) < 4+length {
		return nil, ErrNeedMore
	}
	payload := d.buf[4 : 4+length]
	msg, decodeErr := decodePayload(payload)

	remaining := len(d.buf) - int(4+length)
	next := make([]byte, remaining)
	copy(next, d.buf[4+length:])
	d.buf = next

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, decodeErr)
	}
	return msg, nil
}

func decodePayload(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	kind := Kind(payload[0])
	body := payload[1:]
	switch kind {
	case KindHello:
		var m Hello
		return m, msgpack.Unmarshal(body, &m)
	case KindWelcome:
		var m Welcome
		return m, msgpack.Unmarshal(body, &m)
	case KindBye:
		var m Bye
		return m, msgpack.Unmarshal(body, &m)
	case KindMouseMove:
		var m MouseMove
		return m, msgpack.Unmarshal(body, &m)
	case KindMouseDelta:
		var m MouseDelta
		return m, msgpack.Unmarshal(body, &m)
	case KindMouseButtonEvent:
		var m MouseButtonEvent
		return m, msgpack.Unmarshal(body, &m)
	case KindMouseScroll:
		var m MouseScroll
		return m, msgpack.Unmarshal(body, &m)
	case KindKeyEvent:
		var m KeyEvent
		return m, msgpack.Unmarshal(body, &m)
	case KindEnterScreen:
		var m EnterScreen
		return m, msgpack.Unmarshal(body, &m)
	case KindLeaveScreen:
		var m LeaveScreen
		return m, msgpack.Unmarshal(body, &m)
	case KindClipboardText:
		var m ClipboardText
		return m, msgpack.Unmarshal(body, &m)
	case KindClipboardImage:
		var m ClipboardImage
		return m, msgpack.Unmarshal(body, &m)
	case KindPing:
		var m Ping
		return m, msgpack.Unmarshal(body, &m)
	case KindPong:
		var m Pong
		return m, msgpack.Unmarshal(body, &m)
	default:
		return nil, fmt.Errorf("unknown message kind %d", kind)
	}
}
