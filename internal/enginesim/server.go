package enginesim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/observability"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog/log"
)

type wsPeer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (p *wsPeer) send(address string, values ...any) error {
	payload := protocol.EncodeAddress(address)
	if len(values) > 0 {
		var err error
		if payload, err = protocol.EncodeCommand(address, values...); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

func (p *wsPeer) close() {
	_ = p.conn.Close()
}

type oscPeer struct {
	client *osc.Client
}

func (p *oscPeer) send(address string, values ...any) error {
	msg, err := protocol.EncodeOSC(address, values...)
	if err != nil {
		return err
	}
	return p.client.Send(msg)
}

func (p *oscPeer) close() {}

// ServeHTTP upgrades a front-end connection and serves its commands until it
// disconnects.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != e.cfg.Path {
		http.NotFound(w, r)
		return
	}
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Warnf("enginesim.Engine upgrade remote=%q err=%v", r.RemoteAddr, err)
		return
	}
	p := &wsPeer{conn: conn, writeTimeout: e.cfg.WriteTimeout}
	e.attach(p)
	defer e.detach(p)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		e.handleCommand(p, data)
	}
}

// Handler wraps the engine with request logging and metrics.
func (e *Engine) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(e.cfg.Path, e)
	return observability.RequestLogger(log.Logger, "enginesim", mux)
}

// OSCAddr returns the bound OSC command address once Run is listening.
func (e *Engine) OSCAddr() string {
	e.oscMu.Lock()
	defer e.oscMu.Unlock()
	return e.oscAddr
}

// Run serves WebSocket front-ends and, when enabled, the OSC side until ctx
// is done.
func (e *Engine) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("enginesim: listen %s: %w", e.cfg.ListenAddr, err)
	}
	srv := &http.Server{Handler: e.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 2)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logs.Infof("enginesim.Engine.Run websocket addr=%q path=%q", ln.Addr().String(), e.cfg.Path)

	if e.cfg.OSC {
		pc, err := net.ListenPacket("udp", e.cfg.OSCListenAddr)
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("enginesim: osc listen %s: %w", e.cfg.OSCListenAddr, err)
		}
		e.oscMu.Lock()
		e.oscAddr = pc.LocalAddr().String()
		e.oscMu.Unlock()
		p := &oscPeer{client: osc.NewClient(e.cfg.OSCReplyHost, e.cfg.OSCReplyPort)}
		e.attach(p)
		go e.serveOSC(ctx, pc, p)
		go e.heartbeat(ctx, p)
		logs.Infof("enginesim.Engine.Run osc addr=%q reply=%s:%d", e.oscAddr, e.cfg.OSCReplyHost, e.cfg.OSCReplyPort)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	e.closePeers()
	return runErr
}

func (e *Engine) serveOSC(ctx context.Context, pc net.PacketConn, reply peer) {
	stop := context.AfterFunc(ctx, func() { _ = pc.Close() })
	defer stop()
	buf := make([]byte, 65535)
	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logs.Warnf("enginesim.Engine osc read err=%v", err)
			}
			return
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			logs.Debugf("enginesim.Engine osc parse err=%v", err)
			continue
		}
		msgs, err := protocol.FlattenPacket(packet)
		if err != nil {
			continue
		}
		for _, msg := range msgs {
			payload, err := protocol.NormalizeOSC(msg)
			if err != nil {
				continue
			}
			e.handleCommand(reply, payload)
		}
	}
}

func (e *Engine) heartbeat(ctx context.Context, p peer) {
	ticker := time.NewTicker(e.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		if err := p.send(protocol.AddrPluginAlive); err != nil {
			logs.Debugf("enginesim.Engine heartbeat err=%v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
