// Package clipboard bridges the local OS clipboard to the protocol: a
// polling watcher detects local changes to forward upstream, and a writer
// applies inbound ClipboardText to the local clipboard.
package clipboard

import (
	"context"
	"time"

	"github.com/atotto/clipboard"

	"github.com/kvmshare/kvmshare/internal/logging"
)

const DefaultPollInterval = 500 * time.Millisecond

// Writer applies inbound clipboard text to the local OS clipboard.
type Writer struct{}

// NewWriter returns a Writer backed by the local OS clipboard.
func NewWriter() Writer { return Writer{} }

// SetText writes text to the local clipboard.
func (Writer) SetText(text string) error { return clipboard.WriteAll(text) }

// Watcher polls the local clipboard and emits only on change, matching the
// peer client's dedup requirement (no repeat sends of an unchanged value).
type Watcher struct {
	interval time.Duration
	read     func() (string, error)
}

// NewWatcher returns a Watcher polling at interval, or DefaultPollInterval
// if interval is zero.
func NewWatcher(interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{interval: interval, read: clipboard.ReadAll}
}

// Run polls until ctx is canceled, sending each distinct non-empty clipboard
// value read to out. Blocks on a full out channel only as long as ctx stays
// live; it never drops a value silently mid-send.
func (w *Watcher) Run(ctx context.Context, out chan<- string) {
	logger := logging.Component("clipboard")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			text, err := w.read()
			if err != nil {
				logger.Debug("clipboard_read_error", "error", err)
				continue
			}
			if text == "" || text == last {
				continue
			}
			last = text
			select {
			case out <- text:
			case <-ctx.Done():
				return
			}
		}
	}
}
