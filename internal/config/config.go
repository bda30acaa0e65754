package config

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/sourcesync/internal/enginesim"
	"github.com/danmuck/sourcesync/internal/replica"
	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/danmuck/sourcesync/internal/transport"
)

// ClientConfig is what sourcectl runs with.
type ClientConfig struct {
	Sync synchronizer.Config
	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{Sync: synchronizer.DefaultConfig()}
}

type clientFile struct {
	Mode             string            `toml:"mode"`
	Host             string            `toml:"host"`
	RefreshRate      float64           `toml:"refresh_rate"`
	FullStateTimeout string            `toml:"full_state_timeout"`
	MetricsAddr      string            `toml:"metrics_addr"`
	WebSocket        websocketFile     `toml:"websocket"`
	OSC              oscFile           `toml:"osc"`
	ParameterLabels  map[string]string `toml:"parameter_labels"`
}

type websocketFile struct {
	Port           int     `toml:"port"`
	Path           string  `toml:"path"`
	Scheme         string  `toml:"scheme"`
	ConnectTimeout string  `toml:"connect_timeout"`
	WriteTimeout   string  `toml:"write_timeout"`
	Backoff        string  `toml:"backoff"`
	BackoffFactor  float64 `toml:"backoff_multiplier"`
	BackoffMax     string  `toml:"backoff_max"`
	TLS            tlsFile `toml:"tls"`
}

type tlsFile struct {
	VerifyServer bool   `toml:"verify_server"`
	CAFile       string `toml:"ca_file"`
	ServerName   string `toml:"server_name"`
}

type oscFile struct {
	SendPort         int    `toml:"send_port"`
	ListenAddr       string `toml:"listen_addr"`
	HeartbeatTimeout string `toml:"heartbeat_timeout"`
}

// LoadClientConfig decodes path over DefaultClientConfig. Only keys present
// in the file override a default.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ClientConfig{}, fmt.Errorf("load client config: unknown key %q", undecoded[0].String())
	}

	tr := &cfg.Sync.Transport
	if meta.IsDefined("mode") {
		tr.Mode = transport.Mode(strings.ToLower(strings.TrimSpace(raw.Mode)))
	}
	if meta.IsDefined("host") {
		tr.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("refresh_rate") {
		if raw.RefreshRate <= 0 {
			return ClientConfig{}, fmt.Errorf("refresh_rate must be positive, got %v", raw.RefreshRate)
		}
		cfg.Sync.RefreshRate = raw.RefreshRate
	}
	if err := setDuration(meta, &cfg.Sync.FullStateTimeout, raw.FullStateTimeout, "full_state_timeout"); err != nil {
		return ClientConfig{}, err
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	ws := raw.WebSocket
	if meta.IsDefined("websocket", "port") {
		tr.WSPort = ws.Port
	}
	if meta.IsDefined("websocket", "path") {
		tr.WSPath = strings.TrimSpace(ws.Path)
	}
	if meta.IsDefined("websocket", "scheme") {
		tr.Scheme = transport.SchemePolicy(strings.ToLower(strings.TrimSpace(ws.Scheme)))
	}
	if err := setDuration(meta, &tr.ConnectTimeout, ws.ConnectTimeout, "websocket", "connect_timeout"); err != nil {
		return ClientConfig{}, err
	}
	if err := setDuration(meta, &tr.WriteTimeout, ws.WriteTimeout, "websocket", "write_timeout"); err != nil {
		return ClientConfig{}, err
	}
	if err := setDuration(meta, &tr.Backoff.InitialDelay, ws.Backoff, "websocket", "backoff"); err != nil {
		return ClientConfig{}, err
	}
	if err := setDuration(meta, &tr.Backoff.MaxDelay, ws.BackoffMax, "websocket", "backoff_max"); err != nil {
		return ClientConfig{}, err
	}
	if meta.IsDefined("websocket", "backoff_multiplier") {
		tr.Backoff.Multiplier = ws.BackoffFactor
	}
	if meta.IsDefined("websocket", "tls", "verify_server") {
		tr.TLS.VerifyServer = ws.TLS.VerifyServer
	}
	if meta.IsDefined("websocket", "tls", "ca_file") {
		tr.TLS.CAFile = strings.TrimSpace(ws.TLS.CAFile)
	}
	if meta.IsDefined("websocket", "tls", "server_name") {
		tr.TLS.ServerName = strings.TrimSpace(ws.TLS.ServerName)
	}

	if meta.IsDefined("osc", "send_port") {
		tr.OSCSendPort = raw.OSC.SendPort
	}
	if meta.IsDefined("osc", "listen_addr") {
		tr.OSCListenAddr = strings.TrimSpace(raw.OSC.ListenAddr)
	}
	if err := setDuration(meta, &tr.HeartbeatTimeout, raw.OSC.HeartbeatTimeout, "osc", "heartbeat_timeout"); err != nil {
		return ClientConfig{}, err
	}

	if meta.IsDefined("parameter_labels") {
		labels := replica.DefaultParameterLabels()
		maps.Copy(labels, raw.ParameterLabels)
		cfg.Sync.ParameterLabels = labels
	}

	cfg.Sync = cfg.Sync.WithDefaults()
	if err := cfg.Sync.Transport.Validate(); err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}

type engineFile struct {
	ListenAddr        string `toml:"listen_addr"`
	Path              string `toml:"path"`
	OSC               bool   `toml:"osc"`
	OSCListenAddr     string `toml:"osc_listen_addr"`
	OSCReplyHost      string `toml:"osc_reply_host"`
	OSCReplyPort      int    `toml:"osc_reply_port"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	WriteTimeout      string `toml:"write_timeout"`
}

// LoadEngineConfig decodes an enginesim config over enginesim.DefaultConfig.
func LoadEngineConfig(path string) (enginesim.Config, error) {
	cfg := enginesim.DefaultConfig()

	var raw engineFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return enginesim.Config{}, fmt.Errorf("load engine config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return enginesim.Config{}, fmt.Errorf("load engine config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("path") {
		cfg.Path = strings.TrimSpace(raw.Path)
	}
	if meta.IsDefined("osc") {
		cfg.OSC = raw.OSC
	}
	if meta.IsDefined("osc_listen_addr") {
		cfg.OSCListenAddr = strings.TrimSpace(raw.OSCListenAddr)
	}
	if meta.IsDefined("osc_reply_host") {
		cfg.OSCReplyHost = strings.TrimSpace(raw.OSCReplyHost)
	}
	if meta.IsDefined("osc_reply_port") {
		cfg.OSCReplyPort = raw.OSCReplyPort
	}
	if err := setDuration(meta, &cfg.HeartbeatInterval, raw.HeartbeatInterval, "heartbeat_interval"); err != nil {
		return enginesim.Config{}, err
	}
	if err := setDuration(meta, &cfg.WriteTimeout, raw.WriteTimeout, "write_timeout"); err != nil {
		return enginesim.Config{}, err
	}
	return cfg.WithDefaults(), nil
}

func setDuration(meta toml.MetaData, dst *time.Duration, raw string, key ...string) error {
	if !meta.IsDefined(key...) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", strings.Join(key, "."), err)
	}
	*dst = d
	return nil
}
