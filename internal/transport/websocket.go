package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/observability"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/gorilla/websocket"
)

// WebSocket is the streaming transport. The engine may serve either ws or wss
// on the same port, so the reconnect loop picks a scheme per attempt.
type WebSocket struct {
	cfg  Config
	sink Sink
	rng  *rand.Rand

	mu   sync.Mutex
	conn *websocket.Conn

	up atomic.Bool
}

func NewWebSocket(cfg Config, sink Sink) *WebSocket {
	return &WebSocket{
		cfg:  cfg.WithDefaults(),
		sink: sink,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Endpoint returns the engine URL for scheme.
func (w *WebSocket) Endpoint(scheme string) string {
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(w.cfg.Host, strconv.Itoa(w.cfg.WSPort)),
		Path:   w.cfg.WSPath,
	}
	return u.String()
}

func (w *WebSocket) IsUp() bool {
	return w.up.Load()
}

// NextScheme returns the scheme for the attempt after one that used prev and
// connected (ok) or not. An empty prev starts with ws.
func NextScheme(policy SchemePolicy, prev string, ok bool) string {
	if prev == "" {
		return SchemeWS
	}
	if policy == SchemeSticky && ok {
		return prev
	}
	if prev == SchemeWS {
		return SchemeWSS
	}
	return SchemeWS
}

// Run dials until ctx is done. Each connection is served until it drops, then
// the loop sleeps the backoff delay and tries again.
func (w *WebSocket) Run(ctx context.Context) error {
	var (
		scheme   string
		ok       bool
		failures int
	)
	for {
		scheme = NextScheme(w.cfg.Scheme, scheme, ok)
		endpoint := w.Endpoint(scheme)
		conn, err := w.dial(ctx, scheme, endpoint)
		observability.RecordReconnect(scheme, err == nil)
		if err != nil {
			ok = false
			failures++
			logs.Debugf("transport.WebSocket dial endpoint=%q attempt=%d err=%v", endpoint, failures, err)
		} else {
			ok = true
			failures = 0
			logs.Infof("transport.WebSocket connected endpoint=%q", endpoint)
			w.serve(ctx, conn)
			logs.Infof("transport.WebSocket connection lost endpoint=%q", endpoint)
		}
		if ctx.Err() != nil {
			return nil
		}
		delay := NextBackoffDelay(w.cfg.Backoff, max(failures, 1), w.rng)
		if err := sleepContext(ctx, delay); err != nil {
			return nil
		}
	}
}

func (w *WebSocket) dial(ctx context.Context, scheme, endpoint string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: w.cfg.ConnectTimeout}
	if scheme == SchemeWSS {
		tlsCfg, err := clientTLSConfig(w.cfg)
		if err != nil {
			return nil, err
		}
		dialer.TLSClientConfig = tlsCfg
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (w *WebSocket) serve(ctx context.Context, conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	w.setUp(true)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logs.Debugf("transport.WebSocket read err=%v", err)
			}
			break
		}
		w.sink.HandleInbound(data)
	}

	w.mu.Lock()
	w.conn = nil
	w.mu.Unlock()
	w.setUp(false)
	_ = conn.Close()
}

func (w *WebSocket) setUp(up bool) {
	w.up.Store(up)
	observability.SetTransportUp(string(ModeWebSocket), up)
}

// Send writes one text frame. It returns ErrNotConnected while no connection
// is open; nothing is queued.
func (w *WebSocket) Send(address string, values ...any) error {
	payload, err := protocol.EncodeCommand(address, values...)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("transport: websocket send %s: %w", address, err)
	}
	return nil
}
