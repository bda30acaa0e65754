package enginesim

import "time"

type Config struct {
	// ListenAddr serves WebSocket front-ends.
	ListenAddr string
	Path       string

	// OSC enables the datagram side: commands arrive on OSCListenAddr and
	// updates go to OSCReplyHost:OSCReplyPort.
	OSC               bool
	OSCListenAddr     string
	OSCReplyHost      string
	OSCReplyPort      int
	HeartbeatInterval time.Duration

	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8125",
		Path:              "/source_coms/",
		OSCListenAddr:     "127.0.0.1:9001",
		OSCReplyHost:      "127.0.0.1",
		OSCReplyPort:      9002,
		HeartbeatInterval: time.Second,
		WriteTimeout:      5 * time.Second,
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.OSCListenAddr == "" {
		c.OSCListenAddr = d.OSCListenAddr
	}
	if c.OSCReplyHost == "" {
		c.OSCReplyHost = d.OSCReplyHost
	}
	if c.OSCReplyPort == 0 {
		c.OSCReplyPort = d.OSCReplyPort
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}
