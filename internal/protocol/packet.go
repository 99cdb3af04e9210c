package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// PacketIDHandshake is the serverbound handshake packet in the handshaking state.
	PacketIDHandshake = 0x00

	// PacketIDStatusRequest is the serverbound status request in the status state.
	PacketIDStatusRequest = 0x00

	// PacketIDStatusResponse is the clientbound status response in the status state.
	PacketIDStatusResponse = 0x00

	// ProtocolVersionAny is sent when the client does not care which version the server runs.
	ProtocolVersionAny int32 = -1

	// NextStateStatus asks the server to switch to the status state after the handshake.
	NextStateStatus = 1

	// DefaultPort is the default Minecraft Java edition server port.
	DefaultPort = 25565

	// MaxPacketSize is the largest frame a client will accept (2^21 - 1, the vanilla limit).
	MaxPacketSize = 1<<21 - 1
)

var (
	// ErrUnexpectedPacketID is returned when a status response does not carry packet ID 0.
	ErrUnexpectedPacketID = errors.New("unexpected packet ID")

	// ErrShortPacket is returned when a frame declares more bytes than are available.
	ErrShortPacket = errors.New("packet shorter than declared length")

	// ErrPacketTooLarge is returned when a frame declares a length above the accepted limit.
	ErrPacketTooLarge = errors.New("packet too large")
)

// Response is a decoded status response packet.
type Response struct {
	// JSON is the status document as sent by the server.
	JSON string

	// PacketID of the received packet, always PacketIDStatusResponse on success.
	PacketID int32

	// Length is the outer length prefix declared by the server.
	Length int
}

// frame prefixes payload with its VarInt length.
func frame(payload []byte) []byte {
	out := make([]byte, 0, VarIntSize(uint32(len(payload)))+len(payload))
	out = AppendVarInt(out, uint32(len(payload)))
	return append(out, payload...)
}

// appendString appends a VarInt length prefixed UTF-8 string.
func appendString(dst []byte, s string) []byte {
	dst = AppendVarInt(dst, uint32(len(s)))
	return append(dst, s...)
}

// BuildHandshake returns a framed handshake packet asking for the status state.
// The host length is the UTF-8 byte length of host.
func BuildHandshake(host string, port uint16) []byte {
	payload := make([]byte, 0, 1+MaxVarIntLen*2+len(host)+3)
	payload = AppendVarInt(payload, PacketIDHandshake)
	payload = append(payload, EncodeSignedVarInt(ProtocolVersionAny)...)
	payload = appendString(payload, host)
	payload = binary.BigEndian.AppendUint16(payload, port)
	payload = AppendVarInt(payload, NextStateStatus)

	return frame(payload)
}

// BuildStatusRequest returns a framed status request packet (no fields).
func BuildStatusRequest() []byte {
	return frame(AppendVarInt(nil, PacketIDStatusRequest))
}

// BuildStatusResponse returns a framed status response carrying jsonText.
func BuildStatusResponse(jsonText string) []byte {
	payload := AppendVarInt(nil, PacketIDStatusResponse)
	payload = appendString(payload, jsonText)

	return frame(payload)
}

// ParseResponse decodes a framed status response.
// The declared outer length and JSON length are both checked against the buffer.
func ParseResponse(buf []byte) (Response, error) {
	length, n, err := DecodeVarInt(buf, 0)
	if err != nil {
		return Response{}, fmt.Errorf("packet length: %w", err)
	}
	if int(length) > len(buf)-n {
		return Response{}, fmt.Errorf("packet length %d, have %d: %w", length, len(buf)-n, ErrShortPacket)
	}
	body := buf[n : n+int(length)]

	id, idLen, err := DecodeVarInt(body, 0)
	if err != nil {
		return Response{}, fmt.Errorf("packet ID: %w", err)
	}
	if id != PacketIDStatusResponse {
		return Response{}, fmt.Errorf("%w: 0x%02X", ErrUnexpectedPacketID, id)
	}

	jsonLen, jsonLenSize, err := DecodeVarInt(body, idLen)
	if err != nil {
		return Response{}, fmt.Errorf("JSON length: %w", err)
	}
	start := idLen + jsonLenSize
	if int(jsonLen) > len(body)-start {
		return Response{}, fmt.Errorf("JSON length %d, have %d: %w", jsonLen, len(body)-start, ErrShortPacket)
	}

	return Response{
		JSON:     string(body[start : start+int(jsonLen)]),
		PacketID: int32(id),
		Length:   int(length),
	}, nil
}

// Reader is a byte stream that supports both bulk and single byte reads, such as *bufio.Reader.
type Reader interface {
	io.Reader
	io.ByteReader
}

// ReadPacket reads one complete frame (length prefix included) from r,
// accumulating as many reads as needed to collect the declared payload.
func ReadPacket(r Reader, maxSize int) ([]byte, error) {
	length, _, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int(length) > maxSize {
		return nil, fmt.Errorf("declared %d bytes, limit %d: %w", length, maxSize, ErrPacketTooLarge)
	}

	// prefix is re-encoded canonically so ParseResponse sees a well formed frame
	n := VarIntSize(length)
	buf := make([]byte, n+int(length))
	AppendVarInt(buf[:0], length)
	if _, err := io.ReadFull(r, buf[n:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %d byte payload: %w", length, ErrShortPacket)
		}
		return nil, err
	}

	return buf, nil
}
