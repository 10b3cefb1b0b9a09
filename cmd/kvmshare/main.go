// Command kvmshare runs either the controller (server) or a peer (client)
// half of a cross-machine keyboard/mouse/clipboard sharing session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kvmshare/kvmshare/internal/metrics"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, showVersion, err := parseFlags(args)
	if showVersion {
		fmt.Printf("kvmshare %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 2
	}

	appName := "kvmshare-server"
	if cfg.role == roleClient {
		appName = "kvmshare-client"
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel, appName)
	l.Info("build_info", "version", version, "commit", commit, "date", date)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = metricsSrv.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		l.Info("shutdown_signal", "signal", s.String())
		cancel()
	}()

	var code int
	switch cfg.role {
	case roleServer:
		code = runServer(ctx, cfg, l)
	case roleClient:
		code = runClient(ctx, cfg, l)
	}
	wg.Wait()
	return code
}
