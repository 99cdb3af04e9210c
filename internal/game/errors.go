package game

import (
	"encoding/json"
	"errors"

	"github.com/woozymasta/mcstatus/internal/protocol"
)

// Kind classifies a query failure.
type Kind int

const (
	// KindTransport covers connect, write and read failures.
	KindTransport Kind = iota + 1

	// KindFraming covers VarInt overflow, short frames and unexpected packet IDs.
	KindFraming

	// KindPayload covers malformed JSON or missing status fields.
	KindPayload

	// KindInput covers unparseable addresses, out of range ports and blocked hosts.
	KindInput
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFraming:
		return "framing"
	case KindPayload:
		return "payload"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

var (
	// ErrNoData is returned when the server closes the connection without sending anything.
	ErrNoData = errors.New("no data received")

	// ErrMissingPlayers is returned when the status document has no players object.
	ErrMissingPlayers = errors.New("status has no players field")

	// ErrInvalidAddress is returned for addresses without a host.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidPort is returned for ports outside 0-65535.
	ErrInvalidPort = errors.New("port out of range")

	// ErrBlockedHost is returned for hosts on the configured block list.
	ErrBlockedHost = errors.New("host is blocked")
)

// QueryError is the error carried by a failed Result.
type QueryError struct {
	Err  error
	Op   string
	Kind Kind
}

// Error returns "<op>: <cause>".
func (e *QueryError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}

	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not a *QueryError.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}

	return 0
}

func inputError(op string, err error) *QueryError {
	return &QueryError{Kind: KindInput, Op: op, Err: err}
}

func transportError(op string, err error) *QueryError {
	return &QueryError{Kind: KindTransport, Op: op, Err: err}
}

func payloadError(op string, err error) *QueryError {
	return &QueryError{Kind: KindPayload, Op: op, Err: err}
}

// classify maps an error from the read/parse stages to its Kind.
func classify(op string, err error) *QueryError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, protocol.ErrVarIntTooLarge),
		errors.Is(err, protocol.ErrVarIntTruncated),
		errors.Is(err, protocol.ErrUnexpectedPacketID),
		errors.Is(err, protocol.ErrShortPacket),
		errors.Is(err, protocol.ErrPacketTooLarge):
		return &QueryError{Kind: KindFraming, Op: op, Err: err}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, ErrMissingPlayers):
		return payloadError(op, err)
	default:
		return transportError(op, err)
	}
}
