package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/observability"
	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/hypebeast/go-osc/osc"
)

const maxDatagram = 65535

// OSC is the connectionless transport. Commands go out as OSC datagrams and
// the engine is considered up while /plugin_alive keeps arriving.
type OSC struct {
	cfg    Config
	sink   Sink
	client *osc.Client

	lastAlive atomic.Int64
	reported  atomic.Bool

	mu   sync.Mutex
	conn net.PacketConn
}

func NewOSC(cfg Config, sink Sink) *OSC {
	cfg = cfg.WithDefaults()
	return &OSC{
		cfg:    cfg,
		sink:   sink,
		client: osc.NewClient(cfg.Host, cfg.OSCSendPort),
	}
}

// LocalAddr returns the listener address once Run has bound it.
func (o *OSC) LocalAddr() net.Addr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	return o.conn.LocalAddr()
}

func (o *OSC) IsUp() bool {
	last := o.lastAlive.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) < o.cfg.HeartbeatTimeout
}

func (o *OSC) markAlive() {
	o.lastAlive.Store(time.Now().UnixNano())
	o.report()
}

func (o *OSC) report() {
	up := o.IsUp()
	if o.reported.Swap(up) != up {
		logs.Infof("transport.OSC engine reachable=%v", up)
		observability.SetTransportUp(string(ModeOSC), up)
	}
}

// Run listens for engine datagrams until ctx is done.
func (o *OSC) Run(ctx context.Context) error {
	pc, err := net.ListenPacket("udp", o.cfg.OSCListenAddr)
	if err != nil {
		return fmt.Errorf("transport: osc listen %s: %w", o.cfg.OSCListenAddr, err)
	}
	o.mu.Lock()
	o.conn = pc
	o.mu.Unlock()
	logs.Infof("transport.OSC listening addr=%q send=%s:%d", pc.LocalAddr().String(), o.cfg.Host, o.cfg.OSCSendPort)

	stop := context.AfterFunc(ctx, func() { _ = pc.Close() })
	defer stop()
	go o.watchHeartbeat(ctx)

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logs.Warnf("transport.OSC read err=%v", err)
			continue
		}
		o.handleDatagram(buf[:n], from)
	}
}

func (o *OSC) handleDatagram(data []byte, from net.Addr) {
	packet, err := osc.ParsePacket(string(data))
	if err != nil {
		logs.Warnf("transport.OSC parse from=%v err=%v", from, err)
		return
	}
	msgs, err := protocol.FlattenPacket(packet)
	if err != nil {
		logs.Warnf("transport.OSC flatten from=%v err=%v", from, err)
		return
	}
	for _, msg := range msgs {
		if msg.Address == protocol.AddrPluginAlive {
			o.markAlive()
		}
		payload, err := protocol.NormalizeOSC(msg)
		if err != nil {
			logs.Warnf("transport.OSC normalize address=%q err=%v", msg.Address, err)
			continue
		}
		o.sink.HandleInbound(payload)
	}
}

func (o *OSC) watchHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.HeartbeatTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.report()
		}
	}
}

// Send emits one OSC datagram. Delivery is not confirmed.
func (o *OSC) Send(address string, values ...any) error {
	msg, err := protocol.EncodeOSC(address, values...)
	if err != nil {
		return err
	}
	if err := o.client.Send(msg); err != nil {
		return fmt.Errorf("transport: osc send %s: %w", address, err)
	}
	return nil
}
