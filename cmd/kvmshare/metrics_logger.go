package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kvmshare/kvmshare/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"peers_active", snap.PeersActive,
					"conns_accepted", snap.ConnsAccepted,
					"conns_rejected", snap.ConnsRejected,
					"frames_rx", snap.FramesRx,
					"frames_tx", snap.FramesTx,
					"frames_dropped", snap.FramesDropped,
					"malformed", snap.Malformed,
					"focus_transitions", snap.FocusTransitions,
					"edge_rebinds", snap.EdgeRebinds,
					"clipboard_syncs", snap.ClipboardSyncs,
					"injection_errors", snap.InjectionErrors,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
