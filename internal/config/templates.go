package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindClient = "client"
	KindEngine = "engine"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindClient:
		return clientTemplate, nil
	case KindEngine:
		return engineTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as kind and discards the result.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindClient:
		_, err := LoadClientConfig(path)
		return err
	case KindEngine:
		_, err := LoadEngineConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const clientTemplate = `mode = "websocket"
host = "localhost"
refresh_rate = 15.0
full_state_timeout = "3s"
metrics_addr = ""

[websocket]
port = 8125
path = "/source_coms/"
scheme = "sticky"
connect_timeout = "5s"
write_timeout = "5s"
backoff = "2s"

[websocket.tls]
verify_server = false
ca_file = ""
server_name = ""

[osc]
send_port = 9001
listen_addr = "0.0.0.0:9002"
heartbeat_timeout = "5s"

[parameter_labels]
`

const engineTemplate = `listen_addr = "127.0.0.1:8125"
path = "/source_coms/"
osc = false
osc_listen_addr = "127.0.0.1:9001"
osc_reply_host = "127.0.0.1"
osc_reply_port = 9002
heartbeat_interval = "1s"
write_timeout = "5s"
`
