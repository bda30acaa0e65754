package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/sourcesync/internal/enginesim"
	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/danmuck/sourcesync/internal/testutil/testlog"
	"github.com/danmuck/sourcesync/internal/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestClientTemplateMatchesDefaults(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "client.toml")
	if err := WriteTemplate(path, KindClient, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, KindClient, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := synchronizer.DefaultConfig().Transport
	got := cfg.Sync.Transport
	if got.Mode != def.Mode || got.Host != def.Host || got.WSPort != def.WSPort || got.WSPath != def.WSPath {
		t.Fatalf("unexpected endpoint: %+v", got)
	}
	if got.Scheme != transport.SchemeSticky || got.Backoff.InitialDelay != 2*time.Second || got.TLS.Verify() {
		t.Fatalf("unexpected reconnect settings: %+v", got)
	}
	if got.OSCSendPort != 9001 || got.OSCListenAddr != "0.0.0.0:9002" || got.HeartbeatTimeout != 5*time.Second {
		t.Fatalf("unexpected osc settings: %+v", got)
	}
	if cfg.Sync.RefreshRate != synchronizer.DefaultRefreshRate || cfg.Sync.FullStateTimeout != synchronizer.DefaultFullStateTimeout || cfg.MetricsAddr != "" {
		t.Fatalf("unexpected client settings: %+v", cfg)
	}
	if err := Validate(path, KindClient); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadClientConfigOverrides(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
mode = "OSC"
host = "10.0.0.5"
refresh_rate = 30.0
full_state_timeout = "750ms"
metrics_addr = ":9108"

[websocket]
scheme = "alternate"
backoff = "250ms"

[websocket.tls]
ca_file = "/etc/source/ca.pem"

[osc]
send_port = 19001
heartbeat_timeout = "2s"

[parameter_labels]
gain = "Volume"
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tr := cfg.Sync.Transport
	if tr.Mode != transport.ModeOSC || tr.Host != "10.0.0.5" || tr.OSCSendPort != 19001 {
		t.Fatalf("unexpected transport: %+v", tr)
	}
	if tr.Scheme != transport.SchemeAlternate || tr.Backoff.InitialDelay != 250*time.Millisecond {
		t.Fatalf("unexpected websocket settings: %+v", tr)
	}
	if !tr.TLS.Verify() || tr.TLS.VerifyServer || tr.TLS.CAFile != "/etc/source/ca.pem" {
		t.Fatalf("unexpected tls: %+v", tr.TLS)
	}
	if tr.HeartbeatTimeout != 2*time.Second || tr.WSPort != 8125 {
		t.Fatalf("undefined keys must keep defaults: %+v", tr)
	}
	if cfg.Sync.RefreshRate != 30 || cfg.Sync.FullStateTimeout != 750*time.Millisecond || cfg.MetricsAddr != ":9108" {
		t.Fatalf("unexpected client settings: %+v", cfg)
	}
	if cfg.Sync.ParameterLabels["gain"] != "Volume" || cfg.Sync.ParameterLabels["pitch"] == "" {
		t.Fatalf("labels must merge over defaults: %v", cfg.Sync.ParameterLabels)
	}
}

func TestLoadClientConfigErrors(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"bad duration": "[websocket]\nbackoff = \"soon\"\n",
		"unknown key":  "hostname = \"x\"\n",
		"bad rate":     "refresh_rate = 0.0\n",
		"bad syntax":   "mode = \n",
	}
	for name, body := range cases {
		if _, err := LoadClientConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	_, err := LoadClientConfig(writeConfig(t, "mode = \"carrier-pigeon\"\n"))
	if !errors.Is(err, transport.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
	_, err = LoadClientConfig(writeConfig(t, "[websocket]\nscheme = \"random\"\n"))
	if !errors.Is(err, transport.ErrUnknownScheme) {
		t.Fatalf("expected ErrUnknownScheme, got %v", err)
	}
	if _, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadEngineConfig(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := WriteTemplate(path, KindEngine, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != enginesim.DefaultConfig() {
		t.Fatalf("template must match defaults: %+v", cfg)
	}

	cfg, err = LoadEngineConfig(writeConfig(t, "osc = true\nosc_reply_port = 19002\nheartbeat_interval = \"250ms\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.OSC || cfg.OSCReplyPort != 19002 || cfg.HeartbeatInterval != 250*time.Millisecond {
		t.Fatalf("unexpected engine config: %+v", cfg)
	}
	if cfg.ListenAddr != "127.0.0.1:8125" {
		t.Fatalf("undefined keys must keep defaults: %q", cfg.ListenAddr)
	}
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
