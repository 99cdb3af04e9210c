package game

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/mcstatus/internal/protocol"
)

// handshake is what the fake server saw from the client.
type handshake struct {
	Host      string
	Protocol  int32
	NextState int32
	Port      uint16
}

// startStatusServer runs a go-mc based server that answers every status request with doc.
func startStatusServer(t *testing.T, doc string) (string, <-chan handshake) {
	t.Helper()

	l, err := mcnet.ListenMC("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	seen := make(chan handshake, 16)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveStatus(&conn, doc, seen)
		}
	}()

	return l.Addr().String(), seen
}

func serveStatus(conn *mcnet.Conn, doc string, seen chan<- handshake) {
	defer func() { _ = conn.Close() }()

	var (
		p                pk.Packet
		proto, nextState pk.VarInt
		host             pk.String
		port             pk.UnsignedShort
	)
	if err := conn.ReadPacket(&p); err != nil || p.ID != protocol.PacketIDHandshake {
		return
	}
	if err := p.Scan(&proto, &host, &port, &nextState); err != nil {
		return
	}
	seen <- handshake{Host: string(host), Protocol: int32(proto), NextState: int32(nextState), Port: uint16(port)}

	if err := conn.ReadPacket(&p); err != nil || p.ID != protocol.PacketIDStatusRequest {
		return
	}
	_ = conn.WritePacket(pk.Marshal(protocol.PacketIDStatusResponse, pk.String(doc)))
}

// startRawServer accepts connections, consumes the handshake and status request,
// then hands the connection to reply. The connection is closed only after the client closes.
func startRawServer(t *testing.T, reply func(conn net.Conn)) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer func() { _ = conn.Close() }()

				r := bufio.NewReader(conn)
				for range 2 {
					if _, err := protocol.ReadPacket(r, protocol.MaxPacketSize); err != nil {
						return
					}
				}
				reply(conn)
			}()
		}
	}()

	return l.Addr().String()
}

// waitClientClose blocks until the peer closes its side.
func waitClientClose(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _ = io.Copy(io.Discard, conn)
}

// closedPort returns an address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// trackingDialer records every connection it opens.
type trackingDialer struct {
	mu    sync.Mutex
	conns []*trackingConn
}

func (d *trackingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var nd net.Dialer
	c, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	tc := &trackingConn{Conn: c}
	d.mu.Lock()
	d.conns = append(d.conns, tc)
	d.mu.Unlock()

	return tc, nil
}

func (d *trackingDialer) opened() []*trackingConn {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]*trackingConn(nil), d.conns...)
}

type trackingConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackingConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

// fakeResolver returns fixed SRV records.
type fakeResolver struct {
	records []*net.SRV
	err     error
	calls   atomic.Int32
}

func (r *fakeResolver) LookupSRV(_ context.Context, _, _, _ string) (string, []*net.SRV, error) {
	r.calls.Add(1)
	return "", r.records, r.err
}

func testPinger(d Dialer) *Pinger {
	return &Pinger{
		Dialer:        d,
		Timeout:       2 * time.Second,
		BufferSize:    4096,
		MaxPacketSize: protocol.MaxPacketSize,
	}
}
