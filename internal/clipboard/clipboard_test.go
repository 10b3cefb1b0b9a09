package clipboard

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWatcherEmitsOnlyOnChange(t *testing.T) {
	values := []string{"a", "a", "b", "b", "b", "c"}
	var mu sync.Mutex
	idx := 0

	w := &Watcher{interval: time.Millisecond, read: func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if idx >= len(values) {
			return values[len(values)-1], nil
		}
		v := values[idx]
		idx++
		return v, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan string, 10)
	go w.Run(ctx, out)

	got := make([]string, 0, 3)
	deadline := time.After(500 * time.Millisecond)
	for len(got) < 3 {
		select {
		case v := <-out:
			got = append(got, v)
		case <-deadline:
			t.Fatalf("timed out waiting for emissions, got %v", got)
		}
	}

	want := []string{"a", "b", "c"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("emission %d: expected %q, got %q (all=%v)", i, w, got[i], got)
		}
	}
}

func TestWatcherSkipsEmptyReads(t *testing.T) {
	w := &Watcher{interval: time.Millisecond, read: func() (string, error) { return "", nil }}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan string, 10)
	go w.Run(ctx, out)

	select {
	case v := <-out:
		t.Fatalf("expected no emission for empty reads, got %q", v)
	case <-time.After(30 * time.Millisecond):
	}
}
