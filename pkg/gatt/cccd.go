package gatt

import (
	"encoding/binary"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// ClientConfig is the client characteristic configuration value. The
// client writes it to the CCCD to turn notifications on or off.
type ClientConfig uint16

const (
	// ClientConfigNotify enables handle value notifications.
	ClientConfigNotify ClientConfig = 0x0001
	// ClientConfigIndicate enables handle value indications.
	ClientConfigIndicate ClientConfig = 0x0002
)

// NotificationsEnabled reports whether the notify bit is set.
func (c ClientConfig) NotificationsEnabled() bool {
	return c&ClientConfigNotify != 0
}

// Encode serializes the value little-endian for the wire.
func (c ClientConfig) Encode() []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(c))
	return b
}

// DecodeClientConfig parses a CCCD write. The value must be exactly
// two bytes.
func DecodeClientConfig(b []byte) (ClientConfig, wire.AttError) {
	if len(b) != 2 {
		return 0, wire.AttErrInvalidValueLength
	}
	return ClientConfig(binary.LittleEndian.Uint16(b)), 0
}
