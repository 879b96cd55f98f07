package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// SignalCode identifies an LE signaling PDU type.
type SignalCode uint8

const (
	// SignalEchoRequest probes link liveness; the peer answers with an
	// echo response carrying the same data.
	SignalEchoRequest SignalCode = 0x08
	// SignalEchoResponse answers an echo request.
	SignalEchoResponse SignalCode = 0x09
	// SignalConnParamUpdateRequest asks the peer to adopt new connection
	// parameters.
	SignalConnParamUpdateRequest SignalCode = 0x12
	// SignalConnParamUpdateResponse accepts or rejects a parameter update.
	SignalConnParamUpdateResponse SignalCode = 0x13
)

// String returns the signal code name.
func (c SignalCode) String() string {
	switch c {
	case SignalEchoRequest:
		return "ECHO_REQ"
	case SignalEchoResponse:
		return "ECHO_RSP"
	case SignalConnParamUpdateRequest:
		return "CONN_PARAM_UPDATE_REQ"
	case SignalConnParamUpdateResponse:
		return "CONN_PARAM_UPDATE_RSP"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
	}
}

// Connection parameter update results.
const (
	// ConnParamsAccepted indicates the parameters were applied.
	ConnParamsAccepted uint16 = 0x0000
	// ConnParamsRejected indicates the parameters were refused.
	ConnParamsRejected uint16 = 0x0001
)

// Signaling decode errors.
var (
	// ErrSignalTooShort indicates a signaling PDU shorter than its layout.
	ErrSignalTooShort = errors.New("wire: signaling PDU too short")

	// ErrUnknownSignalCode indicates an undecodable signaling code.
	ErrUnknownSignalCode = errors.New("wire: unknown signaling code")
)

// signalHeaderSize is code + identifier + 16-bit payload length.
const signalHeaderSize = 4

// ConnParams are the link-layer connection parameters. Intervals are in
// 1.25 ms units, the supervision timeout in 10 ms units, matching the
// over-the-air encoding.
type ConnParams struct {
	IntervalMin uint16
	IntervalMax uint16
	Latency     uint16
	Timeout     uint16
}

// IntervalMinDuration converts IntervalMin to a time.Duration.
func (p ConnParams) IntervalMinDuration() time.Duration {
	return time.Duration(p.IntervalMin) * 1250 * time.Microsecond
}

// IntervalMaxDuration converts IntervalMax to a time.Duration.
func (p ConnParams) IntervalMaxDuration() time.Duration {
	return time.Duration(p.IntervalMax) * 1250 * time.Microsecond
}

// TimeoutDuration converts the supervision timeout to a time.Duration.
func (p ConnParams) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * 10 * time.Millisecond
}

// SignalPDU is one LE signaling PDU.
type SignalPDU interface {
	// Code returns the PDU's signaling code.
	Code() SignalCode
	// Marshal serializes the PDU including its header.
	Marshal() []byte
}

// ConnParamUpdateRequest asks the peripheral's peer to adopt new
// connection parameters. The identifier matches the response to the
// request.
type ConnParamUpdateRequest struct {
	Identifier uint8
	Params     ConnParams
}

// Code returns SignalConnParamUpdateRequest.
func (ConnParamUpdateRequest) Code() SignalCode { return SignalConnParamUpdateRequest }

// Marshal serializes the PDU.
func (p ConnParamUpdateRequest) Marshal() []byte {
	buf := make([]byte, signalHeaderSize+8)
	buf[0] = byte(SignalConnParamUpdateRequest)
	buf[1] = p.Identifier
	binary.LittleEndian.PutUint16(buf[2:4], 8)
	binary.LittleEndian.PutUint16(buf[4:6], p.Params.IntervalMin)
	binary.LittleEndian.PutUint16(buf[6:8], p.Params.IntervalMax)
	binary.LittleEndian.PutUint16(buf[8:10], p.Params.Latency)
	binary.LittleEndian.PutUint16(buf[10:12], p.Params.Timeout)
	return buf
}

// ConnParamUpdateResponse accepts or rejects a parameter update request.
type ConnParamUpdateResponse struct {
	Identifier uint8
	Result     uint16
}

// Code returns SignalConnParamUpdateResponse.
func (ConnParamUpdateResponse) Code() SignalCode { return SignalConnParamUpdateResponse }

// Marshal serializes the PDU.
func (p ConnParamUpdateResponse) Marshal() []byte {
	buf := make([]byte, signalHeaderSize+2)
	buf[0] = byte(SignalConnParamUpdateResponse)
	buf[1] = p.Identifier
	binary.LittleEndian.PutUint16(buf[2:4], 2)
	binary.LittleEndian.PutUint16(buf[4:6], p.Result)
	return buf
}

// EchoRequest probes the link. Data is optional and echoed back
// verbatim.
type EchoRequest struct {
	Identifier uint8
	Data       []byte
}

// Code returns SignalEchoRequest.
func (EchoRequest) Code() SignalCode { return SignalEchoRequest }

// Marshal serializes the PDU.
func (p EchoRequest) Marshal() []byte {
	buf := make([]byte, signalHeaderSize, signalHeaderSize+len(p.Data))
	buf[0] = byte(SignalEchoRequest)
	buf[1] = p.Identifier
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(p.Data)))
	return append(buf, p.Data...)
}

// EchoResponse answers an echo request with the same identifier and
// data.
type EchoResponse struct {
	Identifier uint8
	Data       []byte
}

// Code returns SignalEchoResponse.
func (EchoResponse) Code() SignalCode { return SignalEchoResponse }

// Marshal serializes the PDU.
func (p EchoResponse) Marshal() []byte {
	buf := make([]byte, signalHeaderSize, signalHeaderSize+len(p.Data))
	buf[0] = byte(SignalEchoResponse)
	buf[1] = p.Identifier
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(p.Data)))
	return append(buf, p.Data...)
}

// ParseSignal decodes a signaling channel payload into its typed PDU.
func ParseSignal(data []byte) (SignalPDU, error) {
	if len(data) < signalHeaderSize {
		return nil, ErrSignalTooShort
	}
	code := SignalCode(data[0])
	identifier := data[1]
	payloadLen := int(binary.LittleEndian.Uint16(data[2:4]))
	if len(data)-signalHeaderSize != payloadLen {
		return nil, fmt.Errorf("%w: %s declares %d payload bytes, got %d",
			ErrLengthMismatch, code, payloadLen, len(data)-signalHeaderSize)
	}
	body := data[signalHeaderSize:]

	switch code {
	case SignalConnParamUpdateRequest:
		if payloadLen != 8 {
			return nil, fmt.Errorf("%w: %s needs 8 payload bytes, got %d", ErrSignalTooShort, code, payloadLen)
		}
		return ConnParamUpdateRequest{
			Identifier: identifier,
			Params: ConnParams{
				IntervalMin: binary.LittleEndian.Uint16(body[0:2]),
				IntervalMax: binary.LittleEndian.Uint16(body[2:4]),
				Latency:     binary.LittleEndian.Uint16(body[4:6]),
				Timeout:     binary.LittleEndian.Uint16(body[6:8]),
			},
		}, nil

	case SignalConnParamUpdateResponse:
		if payloadLen != 2 {
			return nil, fmt.Errorf("%w: %s needs 2 payload bytes, got %d", ErrSignalTooShort, code, payloadLen)
		}
		return ConnParamUpdateResponse{
			Identifier: identifier,
			Result:     binary.LittleEndian.Uint16(body[0:2]),
		}, nil

	case SignalEchoRequest:
		return EchoRequest{Identifier: identifier, Data: cloneBytes(body)}, nil

	case SignalEchoResponse:
		return EchoResponse{Identifier: identifier, Data: cloneBytes(body)}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownSignalCode, data[0])
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Compile-time PDU checks.
var (
	_ SignalPDU = ConnParamUpdateRequest{}
	_ SignalPDU = ConnParamUpdateResponse{}
	_ SignalPDU = EchoRequest{}
	_ SignalPDU = EchoResponse{}
)
