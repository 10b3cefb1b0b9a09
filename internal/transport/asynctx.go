// Package transport provides small concurrency primitives for anything that
// needs to fan many producers into one dedicated worker goroutine; the
// injection adapter is its user.
package transport

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrAsyncTxClosed is returned by Send once Close has been called.
var ErrAsyncTxClosed = errors.New("transport: async tx closed")

// Hooks customize AsyncTx behavior without it needing to know about metrics
// or logging.
type Hooks[T any] struct {
	// OnError is called when send returns a non-nil error (item not delivered).
	OnError func(T, error)
	// OnAfter is called only after a successful send.
	OnAfter func(T)
	// OnDrop is called when the buffer is full; its returned error is
	// returned from Send. If nil, the overflow is silent (fire-and-forget).
	OnDrop func(T) error
}

// AsyncTx funnels sends of T through a single goroutine, giving callers
// non-blocking enqueue semantics: if the internal buffer is full, Send
// invokes the configured OnDrop hook and returns its error. This keeps
// producers from blocking behind a slow or wedged consumer (an OS injection
// API, a congested socket) and is the generic form of the single dedicated
// worker goroutine required wherever the platform disallows concurrent use
// of a handle — input injection chief among them.
type AsyncTx[T any] struct {
	mu     sync.Mutex
	ch     chan T
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	send   func(T) error
	hooks  Hooks[T]
	closed atomic.Bool
}

// New starts the worker goroutine and returns a ready-to-use AsyncTx with a
// buffered channel of capacity buf.
func New[T any](parent context.Context, buf int, send func(T) error, hooks Hooks[T]) *AsyncTx[T] {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncTx[T]{
		ch:     make(chan T, buf),
		ctx:    ctx,
		cancel: cancel,
		send:   send,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncTx[T]) loop() {
	defer a.wg.Done()
	// Keep every send on one OS thread for platform handles with thread
	// affinity.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case item, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.send(item); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(item, err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter(item)
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// Send queues item for asynchronous delivery, or returns the drop error if
// the buffer is full.
func (a *AsyncTx[T]) Send(item T) error {
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- item:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop(item)
		}
		return nil
	}
}

// Close stops the worker and waits for it to exit. A send already in progress
// completes; items still buffered may be discarded.
func (a *AsyncTx[T]) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
