package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kvmshare/kvmshare/internal/focus"
	"github.com/kvmshare/kvmshare/internal/wire"
)

type fakeSender struct {
	mu  sync.Mutex
	got []wire.Message
}

func (f *fakeSender) Send(deviceID string, msg wire.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, msg)
	return true
}

func (f *fakeSender) snapshot() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Message, len(f.got))
	copy(out, f.got)
	return out
}

type fakeWarper struct {
	mu    sync.Mutex
	count int
}

func (f *fakeWarper) MoveAbs(x, y float64) {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
}

func waitUntil(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestRouterForwardsEntryAndWarps(t *testing.T) {
	m := focus.New(1920, 1080)
	m.RegisterEdge(wire.EdgeRight, "peer", 1920, 1080)
	sender := &fakeSender{}
	warp := &fakeWarper{}
	r := New(m, sender, warp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan wire.Message, 4)
	go r.RunCapture(ctx, events)

	events <- wire.MouseMove{X: 1918.1, Y: 400}

	waitUntil(t, func() bool { return len(sender.snapshot()) == 2 })
	msgs := sender.snapshot()
	if _, ok := msgs[0].(wire.EnterScreen); !ok {
		t.Fatalf("expected EnterScreen forwarded first, got %T", msgs[0])
	}
	if _, ok := msgs[1].(wire.MouseMove); !ok {
		t.Fatalf("expected MouseMove forwarded second, got %T", msgs[1])
	}
	waitUntil(t, func() bool { warp.mu.Lock(); defer warp.mu.Unlock(); return warp.count == 1 })
}

func TestRouterDropsNonMotionWhileLocal(t *testing.T) {
	m := focus.New(1920, 1080)
	sender := &fakeSender{}
	warp := &fakeWarper{}
	r := New(m, sender, warp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan wire.Message, 4)
	go r.RunCapture(ctx, events)

	events <- wire.KeyEvent{Key: wire.KeyA, Action: wire.KeyPress}
	time.Sleep(20 * time.Millisecond)

	if len(sender.snapshot()) != 0 {
		t.Fatalf("expected no forwarded messages while Local, got %v", sender.snapshot())
	}
}

func TestRouterClipboardOnlyForwardsWhileRemote(t *testing.T) {
	m := focus.New(1920, 1080)
	m.RegisterEdge(wire.EdgeRight, "peer", 1920, 1080)
	sender := &fakeSender{}
	warp := &fakeWarper{}
	r := New(m, sender, warp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	texts := make(chan string, 4)
	go r.RunClipboard(ctx, texts)

	texts <- "hello while local"
	time.Sleep(20 * time.Millisecond)
	if len(sender.snapshot()) != 0 {
		t.Fatalf("expected clipboard text dropped while Local, got %v", sender.snapshot())
	}

	m.HandleLocalMouseMove(1918.1, 400) // enter Remote directly on the manager
	texts <- "hello while remote"
	waitUntil(t, func() bool { return len(sender.snapshot()) == 1 })
	ct, ok := sender.snapshot()[0].(wire.ClipboardText)
	if !ok || ct.Text != "hello while remote" {
		t.Fatalf("expected forwarded ClipboardText, got %+v", sender.snapshot())
	}
}
