package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kvmshare/kvmshare/internal/capture"
	"github.com/kvmshare/kvmshare/internal/clipboard"
	"github.com/kvmshare/kvmshare/internal/focus"
	"github.com/kvmshare/kvmshare/internal/inject"
	"github.com/kvmshare/kvmshare/internal/metrics"
	"github.com/kvmshare/kvmshare/internal/registry"
	"github.com/kvmshare/kvmshare/internal/router"
	"github.com/kvmshare/kvmshare/internal/server"
	"github.com/kvmshare/kvmshare/internal/wire"
)

const defaultScreenW, defaultScreenH = 1920, 1080

func runServer(ctx context.Context, cfg *appConfig, l *slog.Logger) int {
	edge, _ := wire.ParseEdge(cfg.direction)
	reg := registry.New()
	fm := focus.New(defaultScreenW, defaultScreenH)

	backend, err := inject.OpenBackend()
	if err != nil {
		l.Error("inject_backend_open_error", "error", err)
		return 1
	}
	injector := inject.New(ctx, backend, 64)
	defer injector.Close()

	hostID, _ := os.Hostname()
	if hostID == "" {
		hostID = "kvmshare-controller"
	}

	clipboardWriter := clipboard.NewWriter()

	srv := server.New(
		server.WithListenAddr(cfg.bind),
		server.WithIdentity(hostID, hostID),
		server.WithEdge(edge),
		server.WithRegistry(reg),
		server.WithFocusManager(fm),
		server.WithMaxClients(cfg.maxClients),
		server.WithHandshakeTimeout(cfg.handshakeTO),
		server.WithReadDeadline(cfg.clientReadTO),
		server.WithLogger(l),
		server.WithOnClipboard(func(deviceID, text string) {
			if err := clipboardWriter.SetText(text); err != nil {
				l.Warn("clipboard_write_error", "device_id", deviceID, "error", err)
				return
			}
			metrics.IncClipboardSync("text")
		}),
	)

	rt := router.New(fm, router.RegistryAdapter{Reg: reg}, injector)

	clipboardWatcher := clipboard.NewWatcher(cfg.clipboardPoll)
	clipboardCh := make(chan string, 16)
	go clipboardWatcher.Run(ctx, clipboardCh)
	go rt.RunClipboard(ctx, clipboardCh)

	captureSrc, err := capture.OpenSource(capture.Config{
		DevicePath: cfg.captureDevice,
		ScreenW:    defaultScreenW,
		ScreenH:    defaultScreenH,
	})
	if err != nil {
		l.Warn("capture_open_failed", "error", err, "fallback", "input capture disabled")
		captureSrc = capture.NullSource{}
	}

	events := make(chan wire.Message, 256)
	go captureSrc.Run(ctx, events)
	go rt.RunCapture(ctx, events)

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	startDiscovery(ctx, cfg, srv.Ready(), srv.Addr, l)

	l.Info("controller_started", "bind", cfg.bind, "edge", edge.String())
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			l.Error("server_error", "error", err)
			return 1
		}
	}
	return 0
}
