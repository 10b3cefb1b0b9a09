// Package server implements the controller side of the connection state
// machine: one TCP listener, one registry entry and one focus-manager edge
// binding per accepted peer, and a Greeting -> Ready -> Terminating
// lifecycle per connection (teacher precedent: Server/Hub/reader/writer in
// the CAN gateway, generalized from CAN frames to protocol Messages).
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvmshare/kvmshare/internal/focus"
	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/registry"
	"github.com/kvmshare/kvmshare/internal/wire"
)

const (
	defaultHandshakeTimeout = 3 * time.Second
	defaultReadDeadline     = 60 * time.Second
	defaultOutBuf           = 64
)

// Server owns the TCP listener and coordinates peer connection lifecycle.
type Server struct {
	mu   sync.RWMutex
	addr string

	DeviceID   string
	DeviceName string
	Screens    []wire.ScreenInfo
	Edge       wire.Edge

	Registry *registry.Registry
	Focus    *focus.Manager

	// OnClipboard is invoked whenever a peer reports a clipboard change. nil
	// means clipboard inbound is ignored.
	OnClipboard func(deviceID, text string)

	handshakeTimeout time.Duration
	readDeadline     time.Duration
	maxClients       int
	outBufSize       int

	readyOnce sync.Once
	readyCh   chan struct{}
	lastErrMu sync.Mutex
	lastErr   error
	errCh     chan error
	listener  net.Listener

	wg         sync.WaitGroup
	logger     *slog.Logger
	nextConnID uint64

	totalAccepted      atomic.Uint64
	totalHandshakeFail atomic.Uint64
	totalConnected     atomic.Uint64
	totalDisconnected  atomic.Uint64
}

type Option func(*Server)

func New(opts ...Option) *Server {
	s := &Server{
		handshakeTimeout: defaultHandshakeTimeout,
		readDeadline:     defaultReadDeadline,
		outBufSize:       defaultOutBuf,
		readyCh:          make(chan struct{}),
		errCh:            make(chan error, 1),
		logger:           logging.Component("server"),
		Edge:             wire.EdgeRight,
	}
	for _, o := range opts {
		o(s)
	}
	if s.addr == "" {
		s.addr = ":0"
	}
	if s.Registry == nil {
		s.Registry = registry.New()
	}
	if s.Focus == nil {
		s.Focus = focus.New(1920, 1080)
	}
	return s
}

func WithListenAddr(a string) Option               { return func(s *Server) { s.addr = a } }
func WithIdentity(id, name string) Option           { return func(s *Server) { s.DeviceID, s.DeviceName = id, name } }
func WithScreens(screens []wire.ScreenInfo) Option  { return func(s *Server) { s.Screens = screens } }
func WithEdge(e wire.Edge) Option                   { return func(s *Server) { s.Edge = e } }
func WithRegistry(r *registry.Registry) Option      { return func(s *Server) { s.Registry = r } }
func WithFocusManager(m *focus.Manager) Option      { return func(s *Server) { s.Focus = m } }
func WithOnClipboard(fn func(string, string)) Option { return func(s *Server) { s.OnClipboard = fn } }

func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}

func WithReadDeadline(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readDeadline = d
		}
	}
}

func WithMaxClients(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxClients = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func (s *Server) Addr() string           { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *Server) setAddr(a string)       { s.mu.Lock(); s.addr = a; s.mu.Unlock() }
func (s *Server) Ready() <-chan struct{} { return s.readyCh }
func (s *Server) Errors() <-chan error   { return s.errCh }

func (s *Server) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *Server) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

// Serve accepts peer connections until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	addr := s.addr
	if addr == "" {
		addr = ":0"
	}
	s.mu.Unlock()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.listener = ln
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr(), "edge", s.Edge.String())
	go func() { <-ctx.Done(); _ = ln.Close() }()
	for {
		if err := s.acceptOnce(ctx, ln); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *Server) acceptOnce(ctx context.Context, ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		if _, ok := err.(net.Error); ok {
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		wrap := fmt.Errorf("%w: %v", ErrAccept, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.totalAccepted.Add(1)
	connID := atomic.AddUint64(&s.nextConnID, 1)
	connLogger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}

	if s.maxClients > 0 && s.Registry.Count() >= s.maxClients {
		metrics.IncConnRejected()
		connLogger.Warn("peer_reject_max", "max_clients", s.maxClients)
		_ = conn.Close()
		return nil
	}

	hello, err := s.greet(conn)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrHandshake, err)
		metrics.IncError(mapErrToMetric(wrap))
		metrics.IncConnRejected()
		s.setError(wrap)
		s.totalHandshakeFail.Add(1)
		connLogger.Warn("handshake_failed", "error", wrap)
		_ = conn.Close()
		return nil
	}

	deviceID := string(hello.DeviceID)
	connLogger = connLogger.With("device_id", deviceID)

	peer := &registry.Peer{
		DeviceID:   deviceID,
		DeviceName: hello.DeviceName,
		Screens:    hello.Screens,
		Out:        make(chan wire.Message, s.outBufSize),
		Closed:     make(chan struct{}),
	}
	s.Registry.Add(peer)
	metrics.IncConnAccepted()

	if screen, ok := peer.PrimaryScreen(); ok {
		s.Focus.RegisterEdge(s.Edge, deviceID, float64(screen.Rect.Width), float64(screen.Rect.Height))
	}

	s.totalConnected.Add(1)
	connLogger.Info("peer_connected")

	s.wg.Add(1)
	go s.runConnection(ctx, conn, peer, connLogger)
	return nil
}

// runConnection drives Ready then Terminating for one accepted peer.
func (s *Server) runConnection(ctx context.Context, conn net.Conn, peer *registry.Peer, logger *slog.Logger) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
		s.Registry.Remove(peer.DeviceID)
		s.Focus.RemoveDevice(peer.DeviceID)
		s.totalDisconnected.Add(1)
		logger.Info("peer_disconnected")
	}()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.readLoop(conn, peer, logger, done) }()
	go func() { defer wg.Done(); s.writeLoop(conn, peer, logger, done) }()

	select {
	case <-ctx.Done():
	case <-peer.Closed:
	case <-done:
	}
	close2(done)
	// Unblock any in-flight Read/Write before waiting on the loops: the
	// deferred close above runs only after wg.Wait(), so a read loop still
	// parked in conn.Read would otherwise hold up teardown until its read
	// deadline expires.
	_ = conn.Close()
	wg.Wait()
}

// close2 closes done if not already closed; used because either loop or the
// outer select may trigger shutdown first.
func close2(done chan struct{}) {
	select {
	case <-done:
	default:
		close(done)
	}
}

func (s *Server) readLoop(conn net.Conn, peer *registry.Peer, logger *slog.Logger, done chan struct{}) {
	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	for {
		select {
		case <-done:
			return
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				msg, derr := dec.Next()
				if derr != nil {
					if !errors.Is(derr, wire.ErrNeedMore) {
						metrics.IncMalformed()
						wrap := fmt.Errorf("%w: %v", ErrConnRead, derr)
						metrics.IncError(mapErrToMetric(wrap))
						logger.Warn("frame_decode_error", "error", derr)
						close2(done)
						return
					}
					break
				}
				if msg == nil {
					break
				}
				s.dispatch(peer, msg, logger)
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

func (s *Server) dispatch(peer *registry.Peer, msg wire.Message, logger *slog.Logger) {
	metrics.IncFrameRx(kindLabel(msg))
	switch m := msg.(type) {
	case wire.Ping:
		peer.Send(wire.Pong{Seq: m.Seq})
	case wire.Pong:
		// heartbeat reply, nothing to do
	case wire.Bye:
		peer.Close()
	case wire.ClipboardText:
		if s.OnClipboard != nil {
			s.OnClipboard(peer.DeviceID, m.Text)
		}
	case wire.Hello:
		logger.Debug("unexpected_hello_in_ready")
	default:
		logger.Debug("unhandled_inbound_message", "kind", kindLabel(msg))
	}
}

func (s *Server) writeLoop(conn net.Conn, peer *registry.Peer, logger *slog.Logger, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-peer.Closed:
			return
		case msg := <-peer.Out:
			frame, err := wire.EncodeFrame(msg)
			if err != nil {
				logger.Error("encode_error", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.readDeadline))
			if _, err := conn.Write(frame); err != nil {
				wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
				metrics.IncError(mapErrToMetric(wrap))
				logger.Warn("conn_write_error", "error", err)
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

// greet performs the acceptor side of Greeting: read frames until Hello
// arrives, reply Welcome. Bounded by handshakeTimeout.
func (s *Server) greet(conn net.Conn) (wire.Hello, error) {
	_ = conn.SetDeadline(time.Now().Add(s.handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

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
					return wire.Hello{}, derr
				}
				if msg == nil {
					break
				}
				hello, ok := msg.(wire.Hello)
				if !ok {
					s.logger.Debug("greeting_discarded_frame", "kind", fmt.Sprintf("%T", msg))
					continue
				}
				frame, ferr := wire.EncodeFrame(wire.Welcome{
					DeviceID:   wire.DeviceId(s.DeviceID),
					DeviceName: s.DeviceName,
					Screens:    s.Screens,
				})
				if ferr != nil {
					return wire.Hello{}, ferr
				}
				if _, werr := conn.Write(frame); werr != nil {
					return wire.Hello{}, werr
				}
				return hello, nil
			}
		}
		if err != nil {
			return wire.Hello{}, err
		}
	}
}

// Shutdown gracefully closes the listener and all active connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_summary",
			"accepted", s.totalAccepted.Load(),
			"handshake_fail", s.totalHandshakeFail.Load(),
			"connected", s.totalConnected.Load(),
			"disconnected", s.totalDisconnected.Load())
		return nil
	}
}
