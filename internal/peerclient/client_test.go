package peerclient

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/kvmshare/kvmshare/internal/wire"
)

// fakeController accepts one connection, performs the acceptor side of the
// handshake, and records every decoded message after that.
type fakeController struct {
	ln net.Listener

	mu       sync.Mutex
	received []wire.Message
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return &fakeController{ln: ln}
}

func (f *fakeController) addr() string { return f.ln.Addr().String() }

func (f *fakeController) record(msg wire.Message) {
	f.mu.Lock()
	f.received = append(f.received, msg)
	f.mu.Unlock()
}

func (f *fakeController) snapshot() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Message, len(f.received))
	copy(out, f.received)
	return out
}

// serveOnce accepts one connection, completes the handshake, sends each of
// toSend in order, then reads until the connection closes.
func (f *fakeController) serveOnce(t *testing.T, toSend []wire.Message) {
	t.Helper()
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			msg, derr := dec.Next()
			if derr == nil {
				if _, ok := msg.(wire.Hello); ok {
					break
				}
			}
		}
		if err != nil {
			return
		}
	}

	welcome, _ := wire.EncodeFrame(wire.Welcome{DeviceID: "controller", DeviceName: "controller"})
	if _, err := conn.Write(welcome); err != nil {
		return
	}
	for _, msg := range toSend {
		frame, err := wire.EncodeFrame(msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				msg, derr := dec.Next()
				if derr != nil {
					break
				}
				if msg == nil {
					break
				}
				f.record(msg)
			}
		}
		if err != nil {
			return
		}
	}
}

type fakeInjector struct {
	mu    sync.Mutex
	calls []wire.Message
}

func (f *fakeInjector) Apply(msg wire.Message) {
	f.mu.Lock()
	f.calls = append(f.calls, msg)
	f.mu.Unlock()
}

func (f *fakeInjector) snapshot() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Message, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (f *fakeClipboard) SetText(text string) error {
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
	return nil
}

func (f *fakeClipboard) get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func waitUntil(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestClientAppliesInboundMotionAndClipboard(t *testing.T) {
	fc := newFakeController(t)
	defer fc.ln.Close()

	toSend := []wire.Message{
		wire.MouseMove{X: 10, Y: 20},
		wire.MouseDelta{DX: 1, DY: 2},
		wire.ClipboardText{Text: "hello"},
	}
	go fc.serveOnce(t, toSend)

	injector := &fakeInjector{}
	clipboard := &fakeClipboard{}
	client := New(
		WithAddr(fc.addr()),
		WithIdentity("peer-1", "peer-one"),
		WithScreens([]wire.ScreenInfo{{ID: 1, IsPrimary: true, Rect: wire.ScreenRect{Width: 1920, Height: 1080}}}),
		WithInjector(injector),
		WithClipboardWriter(clipboard),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitUntil(t, func() bool { return len(injector.snapshot()) >= 2 })
	waitUntil(t, func() bool { return clipboard.get() == "hello" })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestClientSendsByeOnCancel(t *testing.T) {
	fc := newFakeController(t)
	defer fc.ln.Close()

	go fc.serveOnce(t, nil)

	client := New(
		WithAddr(fc.addr()),
		WithIdentity("peer-2", "peer-two"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancellation")
	}

	waitUntil(t, func() bool {
		for _, msg := range fc.snapshot() {
			if _, ok := msg.(wire.Bye); ok {
				return true
			}
		}
		return false
	})
}

func TestClientForwardsClipboardUpstream(t *testing.T) {
	fc := newFakeController(t)
	defer fc.ln.Close()

	go fc.serveOnce(t, nil)

	client := New(
		WithAddr(fc.addr()),
		WithIdentity("peer-3", "peer-three"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitUntil(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.out != nil
	})

	client.SendClipboard("copied text")

	waitUntil(t, func() bool {
		for _, msg := range fc.snapshot() {
			if ct, ok := msg.(wire.ClipboardText); ok && ct.Text == "copied text" {
				return true
			}
		}
		return false
	})

	cancel()
	<-done
}
