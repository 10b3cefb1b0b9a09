package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kvmshare/kvmshare/internal/clipboard"
	"github.com/kvmshare/kvmshare/internal/discovery"
	"github.com/kvmshare/kvmshare/internal/inject"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/peerclient"
	"github.com/kvmshare/kvmshare/internal/wire"
)

// discoverTimeout bounds how long runClient browses mDNS for a controller
// when --server was left empty.
const discoverTimeout = 5 * time.Second

func runClient(ctx context.Context, cfg *appConfig, l *slog.Logger) int {
	addr := cfg.serverAddr
	if addr == "" {
		l.Info("server_address_empty", "action", "browsing mDNS for a controller")
		found, err := discovery.Browse(ctx, discoverTimeout)
		if err != nil || len(found) == 0 {
			l.Error("mdns_discovery_failed", "error", err)
			return 1
		}
		addr = fmt.Sprintf("%s:%d", found[0].Addr, found[0].Port)
		l.Info("mdns_discovery_found", "instance", found[0].Instance, "addr", addr)
	}

	backend, err := inject.OpenBackend()
	if err != nil {
		l.Error("inject_backend_open_error", "error", err)
		return 1
	}
	injector := inject.New(ctx, backend, 64)
	defer injector.Close()

	writer := clipboard.NewWriter()
	watcher := clipboard.NewWatcher(cfg.clipboardPoll)

	client := peerclient.New(
		peerclient.WithAddr(addr),
		peerclient.WithIdentity(cfg.deviceName, cfg.deviceName),
		peerclient.WithScreens([]wire.ScreenInfo{{
			ID:        1,
			Name:      "primary",
			IsPrimary: true,
			Rect:      wire.ScreenRect{Width: defaultScreenW, Height: defaultScreenH},
		}}),
		peerclient.WithInjector(injector),
		peerclient.WithClipboardWriter(writer),
		peerclient.WithHandshakeTimeout(cfg.handshakeTO),
		peerclient.WithReadDeadline(cfg.clientReadTO),
		peerclient.WithLogger(l),
	)

	clipboardCh := make(chan string, 16)
	go watcher.Run(ctx, clipboardCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case text, ok := <-clipboardCh:
				if !ok {
					return
				}
				client.SendClipboard(text)
				metrics.IncClipboardSync("text")
			}
		}
	}()

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })

	l.Info("peer_connecting", "server", addr, "device_name", cfg.deviceName)
	if err := client.Run(ctx); err != nil {
		l.Error("peer_client_error", "error", err)
		return 1
	}
	return 0
}
