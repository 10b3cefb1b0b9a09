package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kvmshare/kvmshare/internal/wire"
)

type role int

const (
	roleServer role = iota
	roleClient
)

type appConfig struct {
	role role

	bind      string
	direction string

	serverAddr string
	deviceName string

	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration

	maxClients   int
	handshakeTO  time.Duration
	clientReadTO time.Duration

	mdnsEnable bool
	mdnsName   string

	captureDevice string
	clipboardPoll time.Duration
}

// parseFlags parses os.Args[1:], expecting a "server" or "client" subcommand
// first, then flags for that role. Each flag has a KVMSHARE_* environment
// override, applied only when the flag was not explicitly set (teacher:
// cmd/can-server/config.go's applyEnvOverrides + flag.Visit).
func parseFlags(args []string) (*appConfig, bool, error) {
	if len(args) == 0 {
		return nil, false, errors.New("expected a subcommand: server|client")
	}
	switch args[0] {
	case "server":
		return parseServerFlags(args[1:])
	case "client":
		return parseClientFlags(args[1:])
	case "-version", "--version", "version":
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("unknown subcommand %q (use server|client)", args[0])
	}
}

func parseServerFlags(args []string) (*appConfig, bool, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	bind := fs.String("bind", "0.0.0.0:24800", "TCP listen address")
	direction := fs.String("client-direction", "right", "Screen edge the peer attaches to: left|right|top|bottom")
	maxClients := fs.Int("max-clients", 1, "Maximum simultaneous peer connections (0 = unlimited)")
	handshakeTO := fs.Duration("handshake-timeout", 3*time.Second, "Peer handshake timeout")
	clientReadTO := fs.Duration("client-read-timeout", 60*time.Second, "Per-connection read deadline")
	logFormat := fs.String("log-format", "text", "Log format: text|json")
	logLevel := fs.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := fs.String("metrics-addr", "", "Metrics HTTP listen address (e.g. :9100); empty disables")
	logMetricsEvery := fs.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	mdnsEnable := fs.Bool("mdns-enable", false, "Advertise this controller over mDNS")
	mdnsName := fs.String("mdns-name", "", "mDNS instance name (default kvmshare-<hostname>)")
	captureDevice := fs.String("capture-device", "/dev/input/event0", "Linux evdev device to capture local input from")
	clipboardPoll := fs.Duration("clipboard-poll-interval", 500*time.Millisecond, "Local clipboard poll interval")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	set := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = struct{}{} })

	cfg := &appConfig{
		role:            roleServer,
		bind:            *bind,
		direction:       *direction,
		maxClients:      *maxClients,
		handshakeTO:     *handshakeTO,
		clientReadTO:    *clientReadTO,
		logFormat:       *logFormat,
		logLevel:        *logLevel,
		metricsAddr:     *metricsAddr,
		logMetricsEvery: *logMetricsEvery,
		mdnsEnable:      *mdnsEnable,
		mdnsName:        *mdnsName,
		captureDevice:   *captureDevice,
		clipboardPoll:   *clipboardPoll,
	}
	if err := applyServerEnvOverrides(cfg, set); err != nil {
		return nil, *showVersion, err
	}
	if err := cfg.validate(); err != nil {
		return nil, *showVersion, err
	}
	return cfg, *showVersion, nil
}

func parseClientFlags(args []string) (*appConfig, bool, error) {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	serverAddr := fs.String("server", "", "Controller address (host:port)")
	deviceName := fs.String("device-name", "", "Advertised device name (default hostname)")
	handshakeTO := fs.Duration("handshake-timeout", 3*time.Second, "Dial + handshake timeout")
	clientReadTO := fs.Duration("read-timeout", 60*time.Second, "Read deadline while connected")
	logFormat := fs.String("log-format", "text", "Log format: text|json")
	logLevel := fs.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := fs.String("metrics-addr", "", "Metrics HTTP listen address (e.g. :9100); empty disables")
	logMetricsEvery := fs.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	clipboardPoll := fs.Duration("clipboard-poll-interval", 500*time.Millisecond, "Local clipboard poll interval")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	set := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = struct{}{} })

	cfg := &appConfig{
		role:            roleClient,
		serverAddr:      *serverAddr,
		deviceName:      *deviceName,
		handshakeTO:     *handshakeTO,
		clientReadTO:    *clientReadTO,
		logFormat:       *logFormat,
		logLevel:        *logLevel,
		metricsAddr:     *metricsAddr,
		logMetricsEvery: *logMetricsEvery,
		clipboardPoll:   *clipboardPoll,
	}
	if err := applyClientEnvOverrides(cfg, set); err != nil {
		return nil, *showVersion, err
	}
	if cfg.deviceName == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.deviceName = host
		} else {
			cfg.deviceName = "kvmshare-peer"
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, *showVersion, err
	}
	return cfg, *showVersion, nil
}

// validate performs basic semantic validation of the parsed configuration.
// It does not open devices or listeners, only checks values/ranges (teacher:
// appConfig.validate in cmd/can-server/config.go).
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.role {
	case roleServer:
		if c.bind == "" {
			return errors.New("bind address must not be empty")
		}
		if _, ok := wire.ParseEdge(c.direction); !ok {
			return fmt.Errorf("invalid client-direction: %s", c.direction)
		}
		if c.maxClients < 0 {
			return errors.New("max-clients must be >= 0")
		}
		if c.handshakeTO <= 0 {
			return errors.New("handshake-timeout must be > 0")
		}
		if c.clientReadTO <= 0 {
			return errors.New("client-read-timeout must be > 0")
		}
		if c.clipboardPoll <= 0 {
			return errors.New("clipboard-poll-interval must be > 0")
		}
	case roleClient:
		// serverAddr may be empty: runClient falls back to mDNS discovery
		// (internal/discovery.Browse) to find a controller to dial.
		if c.handshakeTO <= 0 {
			return errors.New("handshake-timeout must be > 0")
		}
		if c.clientReadTO <= 0 {
			return errors.New("read-timeout must be > 0")
		}
		if c.clipboardPoll <= 0 {
			return errors.New("clipboard-poll-interval must be > 0")
		}
	}
	return nil
}

func getEnv(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return strings.TrimSpace(v), ok
}

func applyServerEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	if _, ok := set["bind"]; !ok {
		if v, ok := getEnv("KVMSHARE_BIND"); ok && v != "" {
			c.bind = v
		}
	}
	if _, ok := set["client-direction"]; !ok {
		if v, ok := getEnv("KVMSHARE_CLIENT_DIRECTION"); ok && v != "" {
			c.direction = v
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := getEnv("KVMSHARE_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxClients = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_MAX_CLIENTS: %w", err)
			}
		}
	}
	if _, ok := set["handshake-timeout"]; !ok {
		if v, ok := getEnv("KVMSHARE_HANDSHAKE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.handshakeTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_HANDSHAKE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["client-read-timeout"]; !ok {
		if v, ok := getEnv("KVMSHARE_CLIENT_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clientReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_CLIENT_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := getEnv("KVMSHARE_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := getEnv("KVMSHARE_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := getEnv("KVMSHARE_METRICS_ADDR"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := getEnv("KVMSHARE_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := getEnv("KVMSHARE_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := getEnv("KVMSHARE_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["capture-device"]; !ok {
		if v, ok := getEnv("KVMSHARE_CAPTURE_DEVICE"); ok && v != "" {
			c.captureDevice = v
		}
	}
	if _, ok := set["clipboard-poll-interval"]; !ok {
		if v, ok := getEnv("KVMSHARE_CLIPBOARD_POLL_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clipboardPoll = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_CLIPBOARD_POLL_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}

func applyClientEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	if _, ok := set["server"]; !ok {
		if v, ok := getEnv("KVMSHARE_SERVER"); ok && v != "" {
			c.serverAddr = v
		}
	}
	if _, ok := set["device-name"]; !ok {
		if v, ok := getEnv("KVMSHARE_DEVICE_NAME"); ok && v != "" {
			c.deviceName = v
		}
	}
	if _, ok := set["handshake-timeout"]; !ok {
		if v, ok := getEnv("KVMSHARE_HANDSHAKE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.handshakeTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_HANDSHAKE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["read-timeout"]; !ok {
		if v, ok := getEnv("KVMSHARE_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clientReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := getEnv("KVMSHARE_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := getEnv("KVMSHARE_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := getEnv("KVMSHARE_METRICS_ADDR"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := getEnv("KVMSHARE_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["clipboard-poll-interval"]; !ok {
		if v, ok := getEnv("KVMSHARE_CLIPBOARD_POLL_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clipboardPoll = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid KVMSHARE_CLIPBOARD_POLL_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}
