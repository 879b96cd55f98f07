package wire

import (
	"errors"
	"fmt"
)

// SMPCode identifies a pairing PDU type on the security channel.
type SMPCode uint8

const (
	// SMPPairingRequest opens a pairing exchange (central to peripheral).
	SMPPairingRequest SMPCode = 0x01
	// SMPPairingResponse answers a pairing request.
	SMPPairingResponse SMPCode = 0x02
	// SMPPairingPublicKey carries a P-256 public key.
	SMPPairingPublicKey SMPCode = 0x0C
	// SMPPairingFailed aborts a pairing exchange.
	SMPPairingFailed SMPCode = 0x05
)

// String returns the pairing code name.
func (c SMPCode) String() string {
	switch c {
	case SMPPairingRequest:
		return "PAIRING_REQ"
	case SMPPairingResponse:
		return "PAIRING_RSP"
	case SMPPairingPublicKey:
		return "PAIRING_PUBLIC_KEY"
	case SMPPairingFailed:
		return "PAIRING_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
	}
}

// IO capabilities. Only no-input-no-output (just works) is implemented.
const (
	// IOCapNoInputNoOutput selects just-works pairing.
	IOCapNoInputNoOutput uint8 = 0x03
)

// Pairing failure reasons.
const (
	// PairingFailedUnsupported indicates a feature the peer cannot provide.
	PairingFailedUnsupported uint8 = 0x05
	// PairingFailedConfirmValue indicates key confirmation failed.
	PairingFailedConfirmValue uint8 = 0x04
)

// PublicKeySize is the uncompressed P-256 point size (0x04 prefix + X + Y).
const PublicKeySize = 65

// SMP decode errors.
var (
	// ErrSMPTooShort indicates a pairing PDU shorter than its layout.
	ErrSMPTooShort = errors.New("wire: pairing PDU too short")

	// ErrUnknownSMPCode indicates an undecodable pairing code.
	ErrUnknownSMPCode = errors.New("wire: unknown pairing code")
)

// SMPPDU is one pairing PDU.
type SMPPDU interface {
	// Code returns the PDU's pairing code.
	Code() SMPCode
	// Marshal serializes the PDU including its code byte.
	Marshal() []byte
}

// PairingRequest opens a pairing exchange.
type PairingRequest struct {
	IOCapability uint8
	MaxKeySize   uint8
}

// Code returns SMPPairingRequest.
func (PairingRequest) Code() SMPCode { return SMPPairingRequest }

// Marshal serializes the PDU.
func (p PairingRequest) Marshal() []byte {
	return []byte{byte(SMPPairingRequest), p.IOCapability, p.MaxKeySize}
}

// PairingResponse answers a pairing request.
type PairingResponse struct {
	IOCapability uint8
	MaxKeySize   uint8
}

// Code returns SMPPairingResponse.
func (PairingResponse) Code() SMPCode { return SMPPairingResponse }

// Marshal serializes the PDU.
func (p PairingResponse) Marshal() []byte {
	return []byte{byte(SMPPairingResponse), p.IOCapability, p.MaxKeySize}
}

// PairingPublicKey carries one side's P-256 public key as an uncompressed
// point.
type PairingPublicKey struct {
	Key []byte
}

// Code returns SMPPairingPublicKey.
func (PairingPublicKey) Code() SMPCode { return SMPPairingPublicKey }

// Marshal serializes the PDU.
func (p PairingPublicKey) Marshal() []byte {
	buf := make([]byte, 1+len(p.Key))
	buf[0] = byte(SMPPairingPublicKey)
	copy(buf[1:], p.Key)
	return buf
}

// PairingFailed aborts a pairing exchange.
type PairingFailed struct {
	Reason uint8
}

// Code returns SMPPairingFailed.
func (PairingFailed) Code() SMPCode { return SMPPairingFailed }

// Marshal serializes the PDU.
func (p PairingFailed) Marshal() []byte {
	return []byte{byte(SMPPairingFailed), p.Reason}
}

// ParseSMP decodes a security channel payload into its typed PDU.
func ParseSMP(data []byte) (SMPPDU, error) {
	if len(data) == 0 {
		return nil, ErrSMPTooShort
	}
	code := SMPCode(data[0])
	switch code {
	case SMPPairingRequest:
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: %s needs 3 bytes, got %d", ErrSMPTooShort, code, len(data))
		}
		return PairingRequest{IOCapability: data[1], MaxKeySize: data[2]}, nil

	case SMPPairingResponse:
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: %s needs 3 bytes, got %d", ErrSMPTooShort, code, len(data))
		}
		return PairingResponse{IOCapability: data[1], MaxKeySize: data[2]}, nil

	case SMPPairingPublicKey:
		if len(data) != 1+PublicKeySize {
			return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrSMPTooShort, code, 1+PublicKeySize, len(data))
		}
		key := make([]byte, PublicKeySize)
		copy(key, data[1:])
		return PairingPublicKey{Key: key}, nil

	case SMPPairingFailed:
		if len(data) != 2 {
			return nil, fmt.Errorf("%w: %s needs 2 bytes, got %d", ErrSMPTooShort, code, len(data))
		}
		return PairingFailed{Reason: data[1]}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownSMPCode, data[0])
	}
}

// Compile-time PDU checks.
var (
	_ SMPPDU = PairingRequest{}
	_ SMPPDU = PairingResponse{}
	_ SMPPDU = PairingPublicKey{}
	_ SMPPDU = PairingFailed{}
)
