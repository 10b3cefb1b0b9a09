package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/kvmshare/kvmshare/internal/focus"
	"github.com/kvmshare/kvmshare/internal/registry"
	"github.com/kvmshare/kvmshare/internal/wire"
)

func dialAndHandshake(t *testing.T, addr string) (net.Conn, wire.Welcome) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	hello := wire.Hello{
		DeviceID:   "peer-1",
		DeviceName: "peer-one",
		Screens: []wire.ScreenInfo{{
			ID: 0, IsPrimary: true,
			Rect: wire.ScreenRect{Width: 1920, Height: 1080},
		}},
	}
	frame, err := wire.EncodeFrame(hello)
	if err != nil {
		t.Fatalf("encode hello: %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read welcome: %v", err)
		}
		dec.Feed(buf[:n])
		msg, derr := dec.Next()
		if derr != nil {
			continue
		}
		w, ok := msg.(wire.Welcome)
		if !ok {
			t.Fatalf("expected Welcome, got %T", msg)
		}
		_ = conn.SetReadDeadline(time.Time{})
		return conn, w
	}
}

func TestHandshakeRegistersPeerAndEdge(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reg := registry.New()
	fm := focus.New(1920, 1080)
	srv := New(
		WithListenAddr(":0"),
		WithIdentity("controller", "controller-host"),
		WithEdge(wire.EdgeRight),
		WithRegistry(reg),
		WithFocusManager(fm),
	)
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server did not become ready")
	}

	conn, welcome := dialAndHandshake(t, srv.Addr())
	defer conn.Close()
	if welcome.DeviceID != "controller" {
		t.Fatalf("expected controller identity in Welcome, got %+v", welcome)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && reg.Count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 registered peer, got %d", reg.Count())
	}

	r := fm.HandleLocalMouseMove(1918.1, 400)
	if !r.Forward || r.DeviceID != "peer-1" {
		t.Fatalf("expected the handshake to bind peer-1 onto the Right edge, got %+v", r)
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := New(WithListenAddr(":0"), WithIdentity("controller", "controller-host"))
	go func() { _ = srv.Serve(ctx) }()
	<-srv.Ready()

	conn, _ := dialAndHandshake(t, srv.Addr())
	defer conn.Close()

	frame, _ := wire.EncodeFrame(wire.Ping{Seq: 42})
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	dec := wire.NewDecoder()
	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read pong: %v", err)
		}
		dec.Feed(buf[:n])
		msg, derr := dec.Next()
		if derr != nil {
			continue
		}
		pong, ok := msg.(wire.Pong)
		if !ok {
			t.Fatalf("expected Pong, got %T", msg)
		}
		if pong.Seq != 42 {
			t.Fatalf("expected Pong.Seq 42, got %d", pong.Seq)
		}
		return
	}
}

func TestDisconnectRemovesPeerAndRevertsFocus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reg := registry.New()
	fm := focus.New(1920, 1080)
	srv := New(
		WithListenAddr(":0"),
		WithIdentity("controller", "controller-host"),
		WithEdge(wire.EdgeRight),
		WithRegistry(reg),
		WithFocusManager(fm),
	)
	go func() { _ = srv.Serve(ctx) }()
	<-srv.Ready()

	conn, _ := dialAndHandshake(t, srv.Addr())
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && reg.Count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	fm.HandleLocalMouseMove(1918.1, 400)
	if fm.State().Kind != focus.StateRemote {
		t.Fatalf("expected focus to be Remote before disconnect")
	}

	conn.Close()

	deadline = time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && reg.Count() != 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if reg.Count() != 0 {
		t.Fatalf("expected peer removed after disconnect, count=%d", reg.Count())
	}
	if fm.State().Kind != focus.StateLocal {
		t.Fatalf("expected focus reverted to Local after disconnect")
	}
}
