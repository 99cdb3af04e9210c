// Package protocol implements the subset of the Minecraft Java edition wire
// format needed for a server list ping: VarInt codec and packet framing.
package protocol

import (
	"errors"
	"io"
)

// MaxVarIntLen is the maximum number of bytes a 32-bit VarInt can occupy.
const MaxVarIntLen = 5

var (
	// ErrVarIntTooLarge is returned when more than MaxVarIntLen bytes carry the continuation bit.
	// It means a corrupt stream or a desynchronized offset; the caller must abort.
	ErrVarIntTooLarge = errors.New("VarInt too large")

	// ErrVarIntTruncated is returned when the input ends in the middle of a VarInt.
	ErrVarIntTruncated = errors.New("VarInt truncated")
)

// AppendVarInt appends the VarInt encoding of v to dst and returns the extended slice.
func AppendVarInt(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// EncodeVarInt returns the canonical VarInt encoding of v (1 to 5 bytes).
func EncodeVarInt(v uint32) []byte {
	return AppendVarInt(make([]byte, 0, MaxVarIntLen), v)
}

// EncodeSignedVarInt encodes a signed value using its unsigned 32-bit bit pattern,
// so -1 becomes FF FF FF FF 0F on the wire.
func EncodeSignedVarInt(v int32) []byte {
	return EncodeVarInt(signedBits(v))
}

// signedBits reinterprets v as the uint32 with the same two's complement bits.
func signedBits(v int32) uint32 {
	return uint32(v)
}

// VarIntSize returns the number of bytes EncodeVarInt(v) produces.
func VarIntSize(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// DecodeVarInt reads a VarInt from buf starting at offset.
// It returns the value and the number of bytes consumed.
func DecodeVarInt(buf []byte, offset int) (uint32, int, error) {
	if offset < 0 {
		return 0, 0, ErrVarIntTruncated
	}

	var value uint32
	for n := 0; n < MaxVarIntLen; n++ {
		if offset+n >= len(buf) {
			return 0, 0, ErrVarIntTruncated
		}

		b := buf[offset+n]
		value |= uint32(b&0x7F) << (7 * n)
		if b&0x80 == 0 {
			return value, n + 1, nil
		}
	}

	return 0, 0, ErrVarIntTooLarge
}

// ReadVarInt reads a VarInt from a byte stream.
// An EOF before the first byte is returned as io.EOF; an EOF afterwards as ErrVarIntTruncated.
func ReadVarInt(r io.ByteReader) (uint32, int, error) {
	var value uint32
	for n := 0; n < MaxVarIntLen; n++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				return 0, n, ErrVarIntTruncated
			}
			return 0, n, err
		}

		value |= uint32(b&0x7F) << (7 * n)
		if b&0x80 == 0 {
			return value, n + 1, nil
		}
	}

	return 0, MaxVarIntLen, ErrVarIntTooLarge
}
