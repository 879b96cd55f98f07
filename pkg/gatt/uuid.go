package gatt

import (
	"errors"

	"github.com/google/uuid"
)

// bluetoothBase is the base UUID 0000xxxx-0000-1000-8000-00805F9B34FB
// that 16-bit attribute types expand into (bytes 4..15).
var bluetoothBase = [12]byte{0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}

// Well-known attribute type UUIDs.
var (
	// TypePrimaryService is the primary service declaration type (0x2800).
	TypePrimaryService = UUID16(0x2800)
	// TypeCharacteristic is the characteristic declaration type (0x2803).
	TypeCharacteristic = UUID16(0x2803)
	// TypeClientConfig is the client characteristic configuration
	// descriptor type (0x2902).
	TypeClientConfig = UUID16(0x2902)
)

// ErrBadUUIDLength indicates a wire UUID that is neither 2 nor 16 bytes.
var ErrBadUUIDLength = errors.New("gatt: UUID must be 2 or 16 bytes")

// UUID16 expands a 16-bit shorthand into its full base-derived UUID.
func UUID16(v uint16) uuid.UUID {
	var u uuid.UUID
	u[2] = byte(v >> 8)
	u[3] = byte(v)
	copy(u[4:], bluetoothBase[:])
	return u
}

// Is16Bit reports whether u is base-derived and returns its shorthand.
func Is16Bit(u uuid.UUID) (uint16, bool) {
	if u[0] != 0 || u[1] != 0 {
		return 0, false
	}
	for i, b := range bluetoothBase {
		if u[4+i] != b {
			return 0, false
		}
	}
	return uint16(u[2])<<8 | uint16(u[3]), true
}

// EncodeUUIDLE serializes a UUID for the wire: 2 bytes little-endian for
// base-derived types, 16 bytes little-endian otherwise.
func EncodeUUIDLE(u uuid.UUID) []byte {
	if v, ok := Is16Bit(u); ok {
		return []byte{byte(v), byte(v >> 8)}
	}
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		out[i] = u[15-i]
	}
	return out
}

// DecodeUUIDLE parses a wire UUID (2 or 16 bytes, little-endian).
func DecodeUUIDLE(b []byte) (uuid.UUID, error) {
	switch len(b) {
	case 2:
		return UUID16(uint16(b[1])<<8 | uint16(b[0])), nil
	case 16:
		var u uuid.UUID
		for i := 0; i < 16; i++ {
			u[i] = b[15-i]
		}
		return u, nil
	default:
		return uuid.UUID{}, ErrBadUUIDLength
	}
}
