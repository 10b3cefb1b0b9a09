// Package discovery is an optional mDNS advertise/browse convenience layer,
// off by default (teacher: cmd/can-server/mdns.go wrapping
// github.com/grandcat/zeroconf). Peers that already know the controller's
// bind address never need this package.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/kvmshare/kvmshare/internal/logging"
)

// ServiceType is the mDNS service type the controller advertises under.
const ServiceType = "_kvmshare._tcp"

// Advertise registers instance on the local network at port, with meta as
// TXT records, until ctx is canceled. The returned stop function is also
// safe to call directly for an early, synchronous shutdown.
func Advertise(ctx context.Context, instance string, port int, meta []string) (func(), error) {
	svc, err := zeroconf.Register(instance, ServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: register: %w", err)
	}
	logger := logging.Component("discovery")
	logger.Info("mdns_advertise", "instance", instance, "port", port)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	stop := func() {
		select {
		case <-done:
		default:
			close(done)
		}
		svc.Shutdown()
		time.Sleep(50 * time.Millisecond)
	}
	return stop, nil
}

// Found is one controller discovered by Browse.
type Found struct {
	Instance string
	Addr     string
	Port     int
}

// Browse searches for advertised controllers for up to timeout and returns
// every instance seen.
func Browse(ctx context.Context, timeout time.Duration) ([]Found, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 8)
	var found []Found
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			addr := ""
			if len(entry.AddrIPv4) > 0 {
				addr = entry.AddrIPv4[0].String()
			}
			found = append(found, Found{Instance: entry.Instance, Addr: addr, Port: entry.Port})
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := resolver.Browse(browseCtx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}
	<-browseCtx.Done()
	<-done
	return found, nil
}
