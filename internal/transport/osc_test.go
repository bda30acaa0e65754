package transport

import (
	"net"
	"testing"
	"time"

	"github.com/danmuck/sourcesync/internal/protocol"
	"github.com/hypebeast/go-osc/osc"
)

type oscPeer struct {
	client *osc.Client
}

func newOSCPeer(t *testing.T, target net.Addr) oscPeer {
	t.Helper()
	udp, ok := target.(*net.UDPAddr)
	if !ok {
		t.Fatalf("unexpected listener address %T", target)
	}
	return oscPeer{client: osc.NewClient(udp.IP.String(), udp.Port)}
}

func (p oscPeer) send(t *testing.T, address string, values ...any) {
	t.Helper()
	msg, err := protocol.EncodeOSC(address, values...)
	if err != nil {
		t.Fatalf("encode osc: %v", err)
	}
	if err := p.client.Send(msg); err != nil {
		t.Fatalf("send osc: %v", err)
	}
}

func readOSC(t *testing.T, pc net.PacketConn) *osc.Message {
	t.Helper()
	_ = pc.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, maxDatagram)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	packet, err := osc.ParsePacket(string(buf[:n]))
	if err != nil {
		t.Fatalf("parse datagram: %v", err)
	}
	msg, ok := packet.(*osc.Message)
	if !ok {
		t.Fatalf("unexpected packet %T", packet)
	}
	return msg
}
