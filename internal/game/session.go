package game

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/models"
	"github.com/woozymasta/mcstatus/internal/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/woozymasta/mcstatus/internal/game")

// State is the lifecycle stage of a status session.
type State int

// Session states, in order. Parsed and Failed are terminal.
const (
	StateIdle State = iota
	StateConnected
	StateHandshakeSent
	StateStatusRequested
	StateResponseReceived
	StateParsed
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateHandshakeSent:
		return "handshake_sent"
	case StateStatusRequested:
		return "status_requested"
	case StateResponseReceived:
		return "response_received"
	case StateParsed:
		return "parsed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolver looks up SRV records. *net.Resolver satisfies it.
type Resolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// Pinger holds the settings shared by all Minecraft status sessions.
// It is safe for concurrent use; every Query runs a fresh Session.
type Pinger struct {
	// Dialer opens the TCP connection for each session.
	Dialer Dialer

	// Resolver is used for _minecraft._tcp SRV lookups when no port is given. Nil disables SRV.
	Resolver Resolver

	// Timeout bounds the whole exchange, connect included. Zero means no limit.
	Timeout time.Duration

	// BufferSize is the read buffer size of a session.
	BufferSize int

	// MaxPacketSize is the largest status response accepted.
	MaxPacketSize int

	// Tracer records one span per session. Nil uses the global provider.
	Tracer trace.Tracer
}

// NewPinger creates a Pinger from the Minecraft query options.
func NewPinger(opts config.MC) *Pinger {
	p := &Pinger{
		Dialer:        &net.Dialer{Timeout: opts.Timeout},
		Timeout:       opts.Timeout,
		BufferSize:    opts.BufferSize,
		MaxPacketSize: opts.MaxPacketSize,
	}
	if !opts.NoSRV {
		p.Resolver = net.DefaultResolver
	}

	return p
}

// Query runs one status session against address.
func (p *Pinger) Query(ctx context.Context, address string) models.Result {
	return NewSession(p).Run(ctx, address)
}

// Session performs a single handshake/status exchange over its own connection.
// A Session is not reusable.
type Session struct {
	pinger *Pinger
	state  State
}

// NewSession creates an idle session using the settings of p.
func NewSession(p *Pinger) *Session {
	return &Session{pinger: p, state: StateIdle}
}

// State returns the stage the session reached.
func (s *Session) State() State {
	return s.state
}

// Run queries address and converts every failure into a Result carrying a *QueryError.
// The connection, once opened, is closed before Run returns.
func (s *Session) Run(ctx context.Context, address string) (res models.Result) {
	ctx, span := s.tracer().Start(ctx, "game.status",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mc.address", address)),
	)
	defer func() {
		span.SetAttributes(attribute.String("mc.state", s.state.String()))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	st, err := s.run(ctx, address)
	if err != nil {
		s.state = StateFailed
		return models.Result{Err: err}
	}

	s.state = StateParsed
	return models.Result{Status: st}
}

func (s *Session) run(ctx context.Context, address string) (*models.Status, error) {
	addr, err := ParseAddress(address, protocol.DefaultPort)
	if err != nil {
		return nil, inputError("address", err)
	}

	if s.pinger.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pinger.Timeout)
		defer cancel()
	}

	target := s.resolve(ctx, addr)

	start := time.Now()
	conn, err := s.dialer().DialContext(ctx, "tcp", target.String())
	if err != nil {
		return nil, transportError("connect", err)
	}
	defer func() { _ = conn.Close() }()
	s.state = StateConnected

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock pending I/O when the caller goes away
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	// the handshake names the host the user asked for, as a vanilla client does after SRV
	if _, err := conn.Write(protocol.BuildHandshake(addr.Host, target.Port)); err != nil {
		return nil, transportError("handshake", err)
	}
	s.state = StateHandshakeSent

	if _, err := conn.Write(protocol.BuildStatusRequest()); err != nil {
		return nil, transportError("status request", err)
	}
	s.state = StateStatusRequested

	frame, err := protocol.ReadPacket(bufio.NewReaderSize(conn, s.bufferSize()), s.pinger.MaxPacketSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, transportError("read", ErrNoData)
		}
		return nil, classify("read", err)
	}
	latency := time.Since(start)
	s.state = StateResponseReceived

	resp, err := protocol.ParseResponse(frame)
	if err != nil {
		return nil, classify("parse", err)
	}

	st, err := ParseStatus(resp.JSON)
	if err != nil {
		return nil, classify("decode status", err)
	}
	st.Latency = latency
	st.RemoteIP = remoteIP(conn.RemoteAddr())

	return st, nil
}

// resolve follows the _minecraft._tcp SRV record for hostnames given without a port.
// Lookup failures fall back to the parsed address.
func (s *Session) resolve(ctx context.Context, addr Address) Address {
	if addr.Explicit || s.pinger.Resolver == nil || net.ParseIP(addr.Host) != nil {
		return addr
	}

	_, records, err := s.pinger.Resolver.LookupSRV(ctx, "minecraft", "tcp", addr.Host)
	if err != nil || len(records) == 0 {
		return addr
	}

	return Address{
		Host:     strings.TrimSuffix(records[0].Target, "."),
		Port:     records[0].Port,
		Explicit: true,
	}
}

func (s *Session) dialer() Dialer {
	if s.pinger.Dialer != nil {
		return s.pinger.Dialer
	}

	return &net.Dialer{}
}

func (s *Session) tracer() trace.Tracer {
	if s.pinger.Tracer != nil {
		return s.pinger.Tracer
	}

	return tracer
}

func (s *Session) bufferSize() int {
	if s.pinger.BufferSize > 0 {
		return s.pinger.BufferSize
	}

	return 4096
}

// remoteIP returns the IP part of a connection's remote address.
func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}

	return host
}
