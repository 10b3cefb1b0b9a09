// Package metrics exposes Prometheus counters/gauges for the controller and
// peer processes, plus a local atomic mirror for cheap periodic logging
// without round-tripping through the Prometheus registry.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kvmshare/kvmshare/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	PeersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "peers_active",
		Help: "Current number of peers attached to the controller.",
	})
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connections_accepted_total",
		Help: "Total inbound peer connections accepted.",
	})
	ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connections_rejected_total",
		Help: "Total inbound connections rejected (handshake failure, capacity).",
	})
	FramesRx = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_rx_total",
		Help: "Total protocol frames decoded, by message kind.",
	}, []string{"kind"})
	FramesTx = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_tx_total",
		Help: "Total protocol frames encoded and queued for send, by message kind.",
	}, []string{"kind"})
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_dropped_total",
		Help: "Total outbound frames dropped because a peer's send queue was full.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total frames rejected by the decoder (oversize length, bad payload).",
	})
	FocusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focus_transitions_total",
		Help: "Total focus handoffs between controller and a peer, by direction.",
	}, []string{"direction"})
	EdgeRebinds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edge_rebinds_total",
		Help: "Total times an edge binding was replaced by a newer registration.",
	})
	ClipboardSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipboard_syncs_total",
		Help: "Total clipboard payloads propagated, by content kind.",
	}, []string{"kind"})
	InjectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "injection_errors_total",
		Help: "Total input-injection calls that returned an error.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrConnRead     = "conn_read"
	ErrConnWrite    = "conn_write"
	ErrHandshake    = "handshake"
	ErrInjection    = "injection"
	ErrClipboard    = "clipboard"
	ErrDiscovery    = "discovery"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to read for periodic status logging.
var (
	localPeersActive      uint64
	localConnsAccepted    uint64
	localConnsRejected    uint64
	localFramesRx         uint64
	localFramesTx         uint64
	localFramesDropped    uint64
	localMalformed        uint64
	localFocusTransitions uint64
	localEdgeRebinds      uint64
	localClipboardSyncs   uint64
	localInjectionErrors  uint64
	localErrors           uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	PeersActive      uint64
	ConnsAccepted    uint64
	ConnsRejected    uint64
	FramesRx         uint64
	FramesTx         uint64
	FramesDropped    uint64
	Malformed        uint64
	FocusTransitions uint64
	EdgeRebinds      uint64
	ClipboardSyncs   uint64
	InjectionErrors  uint64
	Errors           uint64
}

func Snap() Snapshot {
	return Snapshot{
		PeersActive:      atomic.LoadUint64(&localPeersActive),
		ConnsAccepted:    atomic.LoadUint64(&localConnsAccepted),
		ConnsRejected:    atomic.LoadUint64(&localConnsRejected),
		FramesRx:         atomic.LoadUint64(&localFramesRx),
		FramesTx:         atomic.LoadUint64(&localFramesTx),
		FramesDropped:    atomic.LoadUint64(&localFramesDropped),
		Malformed:        atomic.LoadUint64(&localMalformed),
		FocusTransitions: atomic.LoadUint64(&localFocusTransitions),
		EdgeRebinds:      atomic.LoadUint64(&localEdgeRebinds),
		ClipboardSyncs:   atomic.LoadUint64(&localClipboardSyncs),
		InjectionErrors:  atomic.LoadUint64(&localInjectionErrors),
		Errors:           atomic.LoadUint64(&localErrors),
	}
}

// SetPeersActive records the current registry size.
func SetPeersActive(n int) {
	PeersActive.Set(float64(n))
	atomic.StoreUint64(&localPeersActive, uint64(n))
}

func IncConnAccepted() {
	ConnectionsAccepted.Inc()
	atomic.AddUint64(&localConnsAccepted, 1)
}

func IncConnRejected() {
	ConnectionsRejected.Inc()
	atomic.AddUint64(&localConnsRejected, 1)
}

func IncFrameRx(kind string) {
	FramesRx.WithLabelValues(kind).Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncFrameTx(kind string) {
	FramesTx.WithLabelValues(kind).Inc()
	atomic.AddUint64(&localFramesTx, 1)
}

func IncFrameDropped() {
	FramesDropped.Inc()
	atomic.AddUint64(&localFramesDropped, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// IncFocusTransition records a focus handoff. direction is "to_peer" or
// "to_controller".
func IncFocusTransition(direction string) {
	FocusTransitions.WithLabelValues(direction).Inc()
	atomic.AddUint64(&localFocusTransitions, 1)
}

func IncEdgeRebind() {
	EdgeRebinds.Inc()
	atomic.AddUint64(&localEdgeRebinds, 1)
}

// IncClipboardSync records a propagated clipboard payload. kind is "text" or
// "image".
func IncClipboardSync(kind string) {
	ClipboardSyncs.WithLabelValues(kind).Inc()
	atomic.AddUint64(&localClipboardSyncs, 1)
}

func IncInjectionError() {
	InjectionErrors.Inc()
	atomic.AddUint64(&localInjectionErrors, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first error of each kind doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrConnRead, ErrConnWrite, ErrHandshake, ErrInjection, ErrClipboard, ErrDiscovery,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
