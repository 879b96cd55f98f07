package wire

import (
	"encoding/binary"
	"errors"
)

// MTU and framing constants.
const (
	// DefaultMTU is the ATT MTU before any exchange (BLE default).
	DefaultMTU uint16 = 23

	// MaxMTU is the largest MTU this implementation accepts in an exchange.
	MaxMTU uint16 = 512

	// NotifyOverhead is the per-notification ATT header cost
	// (1 byte opcode + 2 bytes handle).
	NotifyOverhead = 3

	// L2CAPHeaderSize is the frame header size (length + channel).
	L2CAPHeaderSize = 4

	// maxFramePayload is the largest payload a 16-bit length field can carry.
	maxFramePayload = 0xFFFF
)

// ChannelID identifies the L2CAP channel a frame is carried on.
type ChannelID uint16

const (
	// ChannelATT carries attribute protocol PDUs.
	ChannelATT ChannelID = 0x0004
	// ChannelSignal carries LE signaling PDUs.
	ChannelSignal ChannelID = 0x0005
	// ChannelSecurity carries pairing PDUs.
	ChannelSecurity ChannelID = 0x0006
)

// String returns the channel name.
func (c ChannelID) String() string {
	switch c {
	case ChannelATT:
		return "ATT"
	case ChannelSignal:
		return "SIGNAL"
	case ChannelSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// Framing errors.
var (
	// ErrFrameTooShort indicates fewer bytes than an L2CAP header.
	ErrFrameTooShort = errors.New("wire: frame shorter than L2CAP header")

	// ErrLengthMismatch indicates the header length disagrees with the
	// actual payload size.
	ErrLengthMismatch = errors.New("wire: frame length mismatch")

	// ErrPayloadTooLarge indicates a payload exceeding the 16-bit length field.
	ErrPayloadTooLarge = errors.New("wire: frame payload too large")
)

// Frame is one L2CAP frame: a channel ID and its payload.
type Frame struct {
	Channel ChannelID
	Payload []byte
}

// EncodeFrame serializes a frame with its 4-byte header.
func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Payload) > maxFramePayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, L2CAPHeaderSize+len(f.Payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(f.Payload)))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(f.Channel))
	copy(buf[L2CAPHeaderSize:], f.Payload)
	return buf, nil
}

// DecodeFrame parses a complete frame (header plus payload).
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < L2CAPHeaderSize {
		return Frame{}, ErrFrameTooShort
	}
	payloadLen := int(binary.LittleEndian.Uint16(data[0:2]))
	if len(data)-L2CAPHeaderSize != payloadLen {
		return Frame{}, ErrLengthMismatch
	}
	f := Frame{
		Channel: ChannelID(binary.LittleEndian.Uint16(data[2:4])),
		Payload: make([]byte, payloadLen),
	}
	copy(f.Payload, data[L2CAPHeaderSize:])
	return f, nil
}
