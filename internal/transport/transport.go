package transport

import (
	"context"
	"fmt"
)

// Sink receives inbound payloads in the text framing. Calls come from the
// transport's receive goroutine, one at a time.
type Sink interface {
	HandleInbound(payload []byte)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(payload []byte)

func (f SinkFunc) HandleInbound(payload []byte) { f(payload) }

// Transport is one engine connection.
type Transport interface {
	// Run owns the connection lifecycle until ctx is done.
	Run(ctx context.Context) error
	// Send delivers one command, fire and forget.
	Send(address string, values ...any) error
	// IsUp reports whether the engine is currently reachable.
	IsUp() bool
}

// New builds the transport selected by cfg.Mode.
func New(cfg Config, sink Sink) (Transport, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeWebSocket:
		return NewWebSocket(cfg, sink), nil
	case ModeOSC:
		return NewOSC(cfg, sink), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}
