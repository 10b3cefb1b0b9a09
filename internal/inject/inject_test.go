package inject

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kvmshare/kvmshare/internal/wire"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeBackend) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeBackend) MoveAbs(x, y float64) error  { f.record("move_abs"); return nil }
func (f *fakeBackend) MoveRel(dx, dy float64) error { f.record("move_rel"); return nil }
func (f *fakeBackend) Button(btn wire.MouseButton, action wire.ButtonAction) error {
	f.record("button")
	return nil
}
func (f *fakeBackend) Key(code wire.KeyCode, action wire.KeyAction) error {
	f.record("key")
	return nil
}
func (f *fakeBackend) Scroll(dx, dy float64) error { f.record("scroll"); return nil }
func (f *fakeBackend) Close() error                { f.record("close"); return nil }

func (f *fakeBackend) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func waitFor(t *testing.T, fn func() bool) {
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

func TestApplyDispatchesToBackend(t *testing.T) {
	backend := &fakeBackend{}
	i := New(context.Background(), backend, 8)
	defer i.Close()

	i.Apply(wire.MouseMove{X: 1, Y: 2})
	i.Apply(wire.MouseDelta{DX: 1, DY: 2})
	i.Apply(wire.MouseButtonEvent{Button: wire.MouseLeft, Action: wire.ButtonPress})
	i.Apply(wire.KeyEvent{Key: wire.KeyA, Action: wire.KeyPress})
	i.Apply(wire.MouseScroll{DX: 0, DY: 1})

	waitFor(t, func() bool { return len(backend.snapshot()) == 5 })
	got := backend.snapshot()
	want := []string{"move_abs", "move_rel", "button", "key", "scroll"}
	for idx, w := range want {
		if got[idx] != w {
			t.Fatalf("call %d: expected %s, got %s (all=%v)", idx, w, got[idx], got)
		}
	}
}

func TestApplyIgnoresNonInjectableMessages(t *testing.T) {
	backend := &fakeBackend{}
	i := New(context.Background(), backend, 8)
	defer i.Close()

	i.Apply(wire.EnterScreen{})
	i.Apply(wire.ClipboardText{Text: "hi"})
	time.Sleep(20 * time.Millisecond)

	if len(backend.snapshot()) != 0 {
		t.Fatalf("expected no backend calls for non-injectable messages, got %v", backend.snapshot())
	}
}
