package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/danmuck/sourcesync/internal/enginesim"
	"github.com/danmuck/sourcesync/internal/replica"
	"github.com/danmuck/sourcesync/internal/synchronizer"
	"github.com/danmuck/sourcesync/internal/testutil/testlog"
)

func TestParseValuesTypesArguments(t *testing.T) {
	testlog.Start(t)

	got := parseValues([]string{"3", "-1", "0.25", "1e3", "gain", "inf", ""})
	want := []any{3, -1, 0.25, 1000.0, "gain", "inf", ""}
	if len(got) != len(want) {
		t.Fatalf("unexpected values: %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value %d: want %#v, got %#v", i, want[i], got[i])
		}
	}
}

func engineConfigFile(t *testing.T, eng *enginesim.Engine) string {
	t.Helper()
	srv := httptest.NewServer(eng.Handler())
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	body := fmt.Sprintf("host = %q\n\n[websocket]\nport = %s\nbackoff = \"20ms\"\n", u.Hostname(), u.Port())
	path := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("sourcectl %v: %v", args, err)
	}
	return out.String()
}

func TestGetPrintsProperties(t *testing.T) {
	testlog.Start(t)

	eng := enginesim.New(enginesim.Config{}, enginesim.DemoState(2))
	path := engineConfigFile(t, eng)

	var global map[string]any
	if err := json.Unmarshal([]byte(execute(t, "--config", path, "get", "NUM_SOUNDS", "pluginVersion")), &global); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if global["NUM_SOUNDS"] != 2.0 || global["pluginVersion"] != "0.0-sim" {
		t.Fatalf("unexpected global properties: %v", global)
	}

	var sound map[string]any
	if err := json.Unmarshal([]byte(execute(t, "--config", path, "get", "--sound", "1", replica.SoundName)), &sound); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if sound[replica.SoundName] != "sound-2" {
		t.Fatalf("unexpected sound properties: %v", sound)
	}
}

func TestSendDeliversCommand(t *testing.T) {
	testlog.Start(t)

	eng := enginesim.New(enginesim.Config{}, enginesim.DemoState(1))
	path := engineConfigFile(t, eng)

	execute(t, "--config", path, "send", "/play_sound", "0", "0.5")
	deadline := time.Now().Add(3 * time.Second)
	for !slices.Contains(eng.Commands(), "/play_sound:0;0.5") {
		if time.Now().After(deadline) {
			t.Fatalf("command never recorded: %v", eng.Commands())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSendRejectsBareAddress(t *testing.T) {
	testlog.Start(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"send", "play_sound"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for address without slash")
	}
}

func TestHealthReportsMissingState(t *testing.T) {
	testlog.Start(t)

	client, err := synchronizer.NewClient(synchronizer.DefaultConfig(), synchronizer.Hooks{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	rec := httptest.NewRecorder()
	watchMux(client).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var report healthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.HasState || report.State != "uninitialized" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "engine.toml")
	execute(t, "config", "init", "--kind", "engine", path)
	out := execute(t, "config", "validate", "--kind", "engine", path)
	if !bytes.Contains([]byte(out), []byte("validated engine config")) {
		t.Fatalf("unexpected output: %q", out)
	}
}
