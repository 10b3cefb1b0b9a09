package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kvmshare/kvmshare/internal/discovery"
)

// startDiscovery advertises addr over mDNS once the listener is bound,
// waiting on ready before registering (teacher: main.go's mDNS goroutine
// waiting on srv.Ready()).
func startDiscovery(ctx context.Context, cfg *appConfig, ready <-chan struct{}, addrFn func() string, l *slog.Logger) {
	if !cfg.mdnsEnable {
		return
	}
	go func() {
		select {
		case <-ready:
		case <-ctx.Done():
			return
		}
		port := portFromAddr(addrFn())
		if port == 0 {
			l.Warn("mdns_start_failed", "error", "could not determine port")
			return
		}
		instance := cfg.mdnsName
		if instance == "" {
			host, _ := os.Hostname()
			instance = "kvmshare-" + host
		}
		stop, err := discovery.Advertise(ctx, instance, port, []string{"role=controller"})
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", discovery.ServiceType, "name", instance, "port", port)
		go func() { <-ctx.Done(); stop() }()
	}()
}

func portFromAddr(addr string) int {
	if _, p, err := net.SplitHostPort(addr); err == nil {
		if pn, err := strconv.Atoi(p); err == nil {
			return pn
		}
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		if pn, err := strconv.Atoi(addr[i+1:]); err == nil {
			return pn
		}
	}
	return 0
}
