package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeWebSocket Mode = "websocket"
	ModeOSC       Mode = "osc"
)

// SchemePolicy decides which WebSocket scheme the next attempt uses.
type SchemePolicy string

const (
	// SchemeAlternate flips between ws and wss on every attempt.
	SchemeAlternate SchemePolicy = "alternate"
	// SchemeSticky keeps the scheme that last connected and flips only after
	// a failed attempt.
	SchemeSticky SchemePolicy = "sticky"
)

const (
	SchemeWS  = "ws"
	SchemeWSS = "wss"
)

var (
	ErrUnknownMode   = errors.New("transport: unknown mode")
	ErrUnknownScheme = errors.New("transport: unknown scheme policy")
	ErrNotConnected  = errors.New("transport: not connected")
)

// TLSConfig applies to wss attempts. The zero value skips certificate
// verification; setting VerifyServer or CAFile turns it on.
type TLSConfig struct {
	VerifyServer bool
	CAFile       string
	ServerName   string
}

// Verify reports whether wss attempts check the server certificate.
func (c TLSConfig) Verify() bool {
	return c.VerifyServer || strings.TrimSpace(c.CAFile) != ""
}

type Config struct {
	Mode Mode
	Host string

	// WebSocket mode.
	WSPort         int
	WSPath         string
	Scheme         SchemePolicy
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	Backoff        BackoffConfig
	TLS            TLSConfig

	// OSC mode.
	OSCSendPort      int
	OSCListenAddr    string
	HeartbeatTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:           ModeWebSocket,
		Host:           "localhost",
		WSPort:         8125,
		WSPath:         "/source_coms/",
		Scheme:         SchemeSticky,
		ConnectTimeout: 5 * time.Second,
		WriteTimeout:   5 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 2 * time.Second,
			Multiplier:   1.0,
		},
		OSCSendPort:      9001,
		OSCListenAddr:    "0.0.0.0:9002",
		HeartbeatTimeout: 5 * time.Second,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(string(c.Mode)) == "" {
		c.Mode = d.Mode
	}
	c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	if strings.TrimSpace(c.Host) == "" {
		c.Host = d.Host
	}
	if c.WSPort == 0 {
		c.WSPort = d.WSPort
	}
	if c.WSPath == "" {
		c.WSPath = d.WSPath
	}
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff.InitialDelay = d.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier == 0 {
		c.Backoff.Multiplier = d.Backoff.Multiplier
	}
	if c.OSCSendPort == 0 {
		c.OSCSendPort = d.OSCSendPort
	}
	if c.OSCListenAddr == "" {
		c.OSCListenAddr = d.OSCListenAddr
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	return c
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeWebSocket, ModeOSC:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
	switch c.Scheme {
	case SchemeAlternate, SchemeSticky:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScheme, c.Scheme)
	}
	if c.WSPort < 0 || c.WSPort > 65535 || c.OSCSendPort < 0 || c.OSCSendPort > 65535 {
		return fmt.Errorf("transport: port out of range ws=%d osc=%d", c.WSPort, c.OSCSendPort)
	}
	return nil
}
