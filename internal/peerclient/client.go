// Package peerclient implements the peer side of the connection: dial the
// controller, complete the Hello/Welcome handshake, then run a receive loop
// that applies inbound events to the local OS and forwards local clipboard
// changes upstream (teacher precedent: cnl/handshake.go's dialer-side magic
// exchange, generalized to the Hello/Welcome frames).
package peerclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/wire"
)

const (
	defaultHandshakeTimeout = 3 * time.Second
	defaultReadDeadline     = 60 * time.Second
	defaultOutBuf           = 64
)

// Injector is the subset of inject.Injector the client drives.
type Injector interface {
	Apply(msg wire.Message)
}

// ClipboardWriter writes an inbound ClipboardText to the local OS clipboard.
type ClipboardWriter interface {
	SetText(text string) error
}

// Client dials a controller and relays inbound protocol messages to Injector
// and ClipboardWriter, mirroring the controller's own Greeting -> Ready ->
// Terminating lifecycle from the peer's side.
type Client struct {
	Addr       string
	DeviceID   string
	DeviceName string
	Screens    []wire.ScreenInfo

	Injector  Injector
	Clipboard ClipboardWriter

	handshakeTimeout time.Duration
	readDeadline     time.Duration
	outBufSize       int
	dialTimeout      time.Duration

	logger *slog.Logger

	mu   sync.Mutex
	out  chan wire.Message
	conn net.Conn
}

type Option func(*Client)

func New(opts ...Option) *Client {
	c := &Client{
		handshakeTimeout: defaultHandshakeTimeout,
		readDeadline:     defaultReadDeadline,
		outBufSize:       defaultOutBuf,
		dialTimeout:      defaultHandshakeTimeout,
		logger:           logging.Component("peerclient"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func WithAddr(addr string) Option             { return func(c *Client) { c.Addr = addr } }
func WithIdentity(id, name string) Option     { return func(c *Client) { c.DeviceID, c.DeviceName = id, name } }
func WithScreens(s []wire.ScreenInfo) Option   { return func(c *Client) { c.Screens = s } }
func WithInjector(i Injector) Option           { return func(c *Client) { c.Injector = i } }
func WithClipboardWriter(w ClipboardWriter) Option { return func(c *Client) { c.Clipboard = w } }
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshakeTimeout = d
			c.dialTimeout = d
		}
	}
}

func WithReadDeadline(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.readDeadline = d
		}
	}
}

var (
	ErrDial      = errors.New("peerclient: dial failed")
	ErrHandshake = errors.New("peerclient: handshake failed")
)

// SendClipboard enqueues a local clipboard change for upstream delivery. It
// is a no-op before Run has established a connection.
func (c *Client) SendClipboard(text string) {
	c.mu.Lock()
	out := c.out
	c.mu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- wire.ClipboardText{Text: text}:
	default:
		metrics.IncFrameDropped()
	}
}

// Run dials, completes the handshake, then serves the connection until ctx
// is canceled or the connection fails. It sends a Bye before closing on
// cancellation. Run returns nil on a clean, intentional shutdown.
func (c *Client) Run(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDial, err)
	}
	defer conn.Close()

	welcome, err := c.handshake(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	c.logger.Info("connected", "addr", c.Addr, "controller_device_id", welcome.DeviceID)

	c.mu.Lock()
	c.conn = conn
	c.out = make(chan wire.Message, c.outBufSize)
	out := c.out
	c.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.readLoop(conn, done) }()
	go func() { defer wg.Done(); c.writeLoop(conn, out, done) }()

	select {
	case <-ctx.Done():
	case <-done:
	}

	if ctx.Err() != nil {
		c.sendBye(conn)
	}
	close2(done)
	_ = conn.Close()
	wg.Wait()

	c.mu.Lock()
	c.conn = nil
	c.out = nil
	c.mu.Unlock()
	return nil
}

func close2(done chan struct{}) {
	select {
	case <-done:
	default:
		close(done)
	}
}

func (c *Client) sendBye(conn net.Conn) {
	frame, err := wire.EncodeFrame(wire.Bye{DeviceID: wire.DeviceId(c.DeviceID)})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = conn.Write(frame)
}

// handshake performs the dialer side of Greeting: send Hello, wait Welcome.
func (c *Client) handshake(conn net.Conn) (wire.Welcome, error) {
	_ = conn.SetDeadline(time.Now().Add(c.handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	frame, err := wire.EncodeFrame(wire.Hello{
		DeviceID:   wire.DeviceId(c.DeviceID),
		DeviceName: c.DeviceName,
		Screens:    c.Screens,
	})
	if err != nil {
		return wire.Welcome{}, err
	}
	if _, err := conn.Write(frame); err != nil {
		return wire.Welcome{}, err
	}

	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				msg, derr := dec.Next()
				if derr != nil {
					if errors.Is(derr, wire.ErrNeedMore) {
						break
					}
					return wire.Welcome{}, derr
				}
				if msg == nil {
					break
				}
				welcome, ok := msg.(wire.Welcome)
				if !ok {
					continue
				}
				return welcome, nil
			}
		}
		if err != nil {
			return wire.Welcome{}, err
		}
	}
}

func (c *Client) readLoop(conn net.Conn, done chan struct{}) {
	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	for {
		select {
		case <-done:
			return
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.readDeadline))
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				msg, derr := dec.Next()
				if derr != nil {
					if !errors.Is(derr, wire.ErrNeedMore) {
						metrics.IncMalformed()
						c.logger.Warn("frame_decode_error", "error", derr)
						close2(done)
						return
					}
					break
				}
				if msg == nil {
					break
				}
				if stop := c.dispatch(msg); stop {
					close2(done)
					return
				}
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			close2(done)
			return
		}
	}
}

// dispatch applies one inbound message. It returns true if the connection
// should terminate (a Bye was received).
func (c *Client) dispatch(msg wire.Message) bool {
	metrics.IncFrameRx(kindLabel(msg))
	switch m := msg.(type) {
	case wire.Ping:
		c.enqueue(wire.Pong{Seq: m.Seq})
	case wire.Pong:
	case wire.Bye:
		c.logger.Info("controller_bye")
		return true
	case wire.MouseMove, wire.MouseDelta, wire.MouseButtonEvent, wire.KeyEvent, wire.MouseScroll:
		if c.Injector != nil {
			c.Injector.Apply(msg)
		}
	case wire.ClipboardText:
		if c.Clipboard != nil {
			if err := c.Clipboard.SetText(m.Text); err != nil {
				c.logger.Warn("clipboard_write_error", "error", err)
			} else {
				metrics.IncClipboardSync("text")
			}
		}
	case wire.ClipboardImage:
		c.logger.Debug("clipboard_image_unsupported", "width", m.Width, "height", m.Height)
	case wire.EnterScreen:
		c.logger.Debug("enter_screen", "screen_id", m.ScreenID)
	case wire.LeaveScreen:
		c.logger.Debug("leave_screen", "screen_id", m.ScreenID, "edge", m.Edge.String())
	default:
		c.logger.Debug("unhandled_inbound_message", "kind", kindLabel(msg))
	}
	return false
}

func (c *Client) enqueue(msg wire.Message) {
	c.mu.Lock()
	out := c.out
	c.mu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- msg:
	default:
		metrics.IncFrameDropped()
	}
}

func (c *Client) writeLoop(conn net.Conn, out <-chan wire.Message, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-out:
			frame, err := wire.EncodeFrame(msg)
			if err != nil {
				c.logger.Error("encode_error", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(c.readDeadline))
			if _, err := conn.Write(frame); err != nil {
				c.logger.Warn("conn_write_error", "error", err)
				close2(done)
				return
			}
			metrics.IncFrameTx(kindLabel(msg))
		}
	}
}

func kindLabel(msg wire.Message) string {
	switch msg.(type) {
	case wire.Hello:
		return "hello"
	case wire.Welcome:
		return "welcome"
	case wire.Bye:
		return "bye"
	case wire.MouseMove:
		return "mouse_move"
	case wire.MouseDelta:
		return "mouse_delta"
	case wire.MouseButtonEvent:
		return "mouse_button"
	case wire.MouseScroll:
		return "mouse_scroll"
	case wire.KeyEvent:
		return "key_event"
	case wire.EnterScreen:
		return "enter_screen"
	case wire.LeaveScreen:
		return "leave_screen"
	case wire.ClipboardText:
		return "clipboard_text"
	case wire.ClipboardImage:
		return "clipboard_image"
	case wire.Ping:
		return "ping"
	case wire.Pong:
		return "pong"
	default:
		return "unknown"
	}
}
