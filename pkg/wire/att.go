package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// AttOpcode identifies an ATT PDU type.
type AttOpcode uint8

const (
	// AttOpErrorResponse reports a failed request.
	AttOpErrorResponse AttOpcode = 0x01
	// AttOpExchangeMTURequest announces the client receive MTU.
	AttOpExchangeMTURequest AttOpcode = 0x02
	// AttOpExchangeMTUResponse announces the server receive MTU.
	AttOpExchangeMTUResponse AttOpcode = 0x03
	// AttOpReadRequest reads an attribute value.
	AttOpReadRequest AttOpcode = 0x0A
	// AttOpReadResponse carries a read attribute value.
	AttOpReadResponse AttOpcode = 0x0B
	// AttOpWriteRequest writes an attribute value, expecting a response.
	AttOpWriteRequest AttOpcode = 0x12
	// AttOpWriteResponse acknowledges a write request.
	AttOpWriteResponse AttOpcode = 0x13
	// AttOpWriteCommand writes an attribute value without response.
	AttOpWriteCommand AttOpcode = 0x52
	// AttOpHandleValueNotification pushes a value without acknowledgement.
	AttOpHandleValueNotification AttOpcode = 0x1B
)

// String returns the opcode name.
func (o AttOpcode) String() string {
	switch o {
	case AttOpErrorResponse:
		return "ERROR_RSP"
	case AttOpExchangeMTURequest:
		return "EXCHANGE_MTU_REQ"
	case AttOpExchangeMTUResponse:
		return "EXCHANGE_MTU_RSP"
	case AttOpReadRequest:
		return "READ_REQ"
	case AttOpReadResponse:
		return "READ_RSP"
	case AttOpWriteRequest:
		return "WRITE_REQ"
	case AttOpWriteResponse:
		return "WRITE_RSP"
	case AttOpWriteCommand:
		return "WRITE_CMD"
	case AttOpHandleValueNotification:
		return "HANDLE_VALUE_NTF"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(o))
	}
}

// IsRequest reports whether the opcode expects a response or error response.
func (o AttOpcode) IsRequest() bool {
	switch o {
	case AttOpExchangeMTURequest, AttOpReadRequest, AttOpWriteRequest:
		return true
	default:
		return false
	}
}

// IsCommand reports whether the opcode is fire-and-forget from the client.
func (o AttOpcode) IsCommand() bool {
	return o == AttOpWriteCommand
}

// AttError is an ATT error response code.
type AttError uint8

const (
	// AttErrInvalidHandle indicates the handle does not exist.
	AttErrInvalidHandle AttError = 0x01
	// AttErrReadNotPermitted indicates the attribute cannot be read.
	AttErrReadNotPermitted AttError = 0x02
	// AttErrWriteNotPermitted indicates the attribute cannot be written.
	AttErrWriteNotPermitted AttError = 0x03
	// AttErrRequestNotSupported indicates an unsupported request opcode.
	AttErrRequestNotSupported AttError = 0x06
	// AttErrInvalidValueLength indicates a value of unacceptable size.
	AttErrInvalidValueLength AttError = 0x0D
	// AttErrUnlikely indicates an unclassified failure.
	AttErrUnlikely AttError = 0x0E
)

// String returns the error code name.
func (e AttError) String() string {
	switch e {
	case AttErrInvalidHandle:
		return "INVALID_HANDLE"
	case AttErrReadNotPermitted:
		return "READ_NOT_PERMITTED"
	case AttErrWriteNotPermitted:
		return "WRITE_NOT_PERMITTED"
	case AttErrRequestNotSupported:
		return "REQUEST_NOT_SUPPORTED"
	case AttErrInvalidValueLength:
		return "INVALID_VALUE_LENGTH"
	case AttErrUnlikely:
		return "UNLIKELY_ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(e))
	}
}

// ATT decode errors.
var (
	// ErrPacketTooShort indicates a PDU shorter than its fixed layout.
	ErrPacketTooShort = errors.New("wire: ATT PDU too short")

	// ErrUnknownOpcode indicates an opcode this implementation does not decode.
	ErrUnknownOpcode = errors.New("wire: unknown ATT opcode")
)

// AttPDU is one attribute protocol PDU.
type AttPDU interface {
	// Opcode returns the PDU's opcode byte.
	Opcode() AttOpcode
	// Marshal serializes the PDU including its opcode.
	Marshal() []byte
}

// ErrorResponse reports a failed request back to the client.
type ErrorResponse struct {
	Request AttOpcode
	Handle  uint16
	Code    AttError
}

// Opcode returns AttOpErrorResponse.
func (ErrorResponse) Opcode() AttOpcode { return AttOpErrorResponse }

// Marshal serializes the PDU.
func (p ErrorResponse) Marshal() []byte {
	buf := make([]byte, 5)
	buf[0] = byte(AttOpErrorResponse)
	buf[1] = byte(p.Request)
	binary.LittleEndian.PutUint16(buf[2:4], p.Handle)
	buf[4] = byte(p.Code)
	return buf
}

// ExchangeMTURequest announces the client's receive MTU.
type ExchangeMTURequest struct {
	MTU uint16
}

// Opcode returns AttOpExchangeMTURequest.
func (ExchangeMTURequest) Opcode() AttOpcode { return AttOpExchangeMTURequest }

// Marshal serializes the PDU.
func (p ExchangeMTURequest) Marshal() []byte {
	buf := make([]byte, 3)
	buf[0] = byte(AttOpExchangeMTURequest)
	binary.LittleEndian.PutUint16(buf[1:3], p.MTU)
	return buf
}

// ExchangeMTUResponse announces the server's receive MTU.
type ExchangeMTUResponse struct {
	MTU uint16
}

// Opcode returns AttOpExchangeMTUResponse.
func (ExchangeMTUResponse) Opcode() AttOpcode { return AttOpExchangeMTUResponse }

// Marshal serializes the PDU.
func (p ExchangeMTUResponse) Marshal() []byte {
	buf := make([]byte, 3)
	buf[0] = byte(AttOpExchangeMTUResponse)
	binary.LittleEndian.PutUint16(buf[1:3], p.MTU)
	return buf
}

// ReadRequest reads one attribute value.
type ReadRequest struct {
	Handle uint16
}

// Opcode returns AttOpReadRequest.
func (ReadRequest) Opcode() AttOpcode { return AttOpReadRequest }

// Marshal serializes the PDU.
func (p ReadRequest) Marshal() []byte {
	buf := make([]byte, 3)
	buf[0] = byte(AttOpReadRequest)
	binary.LittleEndian.PutUint16(buf[1:3], p.Handle)
	return buf
}

// ReadResponse carries the value of a read attribute.
type ReadResponse struct {
	Value []byte
}

// Opcode returns AttOpReadResponse.
func (ReadResponse) Opcode() AttOpcode { return AttOpReadResponse }

// Marshal serializes the PDU.
func (p ReadResponse) Marshal() []byte {
	buf := make([]byte, 1+len(p.Value))
	buf[0] = byte(AttOpReadResponse)
	copy(buf[1:], p.Value)
	return buf
}

// WriteRequest writes an attribute value and expects a WriteResponse.
type WriteRequest struct {
	Handle uint16
	Value  []byte
}

// Opcode returns AttOpWriteRequest.
func (WriteRequest) Opcode() AttOpcode { return AttOpWriteRequest }

// Marshal serializes the PDU.
func (p WriteRequest) Marshal() []byte {
	buf := make([]byte, 3+len(p.Value))
	buf[0] = byte(AttOpWriteRequest)
	binary.LittleEndian.PutUint16(buf[1:3], p.Handle)
	copy(buf[3:], p.Value)
	return buf
}

// WriteResponse acknowledges a WriteRequest.
type WriteResponse struct{}

// Opcode returns AttOpWriteResponse.
func (WriteResponse) Opcode() AttOpcode { return AttOpWriteResponse }

// Marshal serializes the PDU.
func (WriteResponse) Marshal() []byte {
	return []byte{byte(AttOpWriteResponse)}
}

// WriteCommand writes an attribute value with no response.
type WriteCommand struct {
	Handle uint16
	Value  []byte
}

// Opcode returns AttOpWriteCommand.
func (WriteCommand) Opcode() AttOpcode { return AttOpWriteCommand }

// Marshal serializes the PDU.
func (p WriteCommand) Marshal() []byte {
	buf := make([]byte, 3+len(p.Value))
	buf[0] = byte(AttOpWriteCommand)
	binary.LittleEndian.PutUint16(buf[1:3], p.Handle)
	copy(buf[3:], p.Value)
	return buf
}

// Notification pushes an attribute value to a subscribed client.
type Notification struct {
	Handle uint16
	Value  []byte
}

// Opcode returns AttOpHandleValueNotification.
func (Notification) Opcode() AttOpcode { return AttOpHandleValueNotification }

// Marshal serializes the PDU.
func (p Notification) Marshal() []byte {
	buf := make([]byte, NotifyOverhead+len(p.Value))
	buf[0] = byte(AttOpHandleValueNotification)
	binary.LittleEndian.PutUint16(buf[1:3], p.Handle)
	copy(buf[NotifyOverhead:], p.Value)
	return buf
}

// ParseAtt decodes an ATT channel payload into its typed PDU.
func ParseAtt(data []byte) (AttPDU, error) {
	if len(data) == 0 {
		return nil, ErrPacketTooShort
	}
	op := AttOpcode(data[0])
	switch op {
	case AttOpErrorResponse:
		if len(data) != 5 {
			return nil, fmt.Errorf("%w: %s needs 5 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		return ErrorResponse{
			Request: AttOpcode(data[1]),
			Handle:  binary.LittleEndian.Uint16(data[2:4]),
			Code:    AttError(data[4]),
		}, nil

	case AttOpExchangeMTURequest:
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: %s needs 3 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		return ExchangeMTURequest{MTU: binary.LittleEndian.Uint16(data[1:3])}, nil

	case AttOpExchangeMTUResponse:
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: %s needs 3 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		return ExchangeMTUResponse{MTU: binary.LittleEndian.Uint16(data[1:3])}, nil

	case AttOpReadRequest:
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: %s needs 3 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		return ReadRequest{Handle: binary.LittleEndian.Uint16(data[1:3])}, nil

	case AttOpReadResponse:
		value := make([]byte, len(data)-1)
		copy(value, data[1:])
		return ReadResponse{Value: value}, nil

	case AttOpWriteRequest:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: %s needs at least 3 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		value := make([]byte, len(data)-3)
		copy(value, data[3:])
		return WriteRequest{Handle: binary.LittleEndian.Uint16(data[1:3]), Value: value}, nil

	case AttOpWriteResponse:
		if len(data) != 1 {
			return nil, fmt.Errorf("%w: %s needs 1 byte, got %d", ErrPacketTooShort, op, len(data))
		}
		return WriteResponse{}, nil

	case AttOpWriteCommand:
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: %s needs at least 3 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		value := make([]byte, len(data)-3)
		copy(value, data[3:])
		return WriteCommand{Handle: binary.LittleEndian.Uint16(data[1:3]), Value: value}, nil

	case AttOpHandleValueNotification:
		if len(data) < NotifyOverhead {
			return nil, fmt.Errorf("%w: %s needs at least 3 bytes, got %d", ErrPacketTooShort, op, len(data))
		}
		value := make([]byte, len(data)-NotifyOverhead)
		copy(value, data[NotifyOverhead:])
		return Notification{Handle: binary.LittleEndian.Uint16(data[1:3]), Value: value}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, data[0])
	}
}

// Compile-time PDU checks.
var (
	_ AttPDU = ErrorResponse{}
	_ AttPDU = ExchangeMTURequest{}
	_ AttPDU = ExchangeMTUResponse{}
	_ AttPDU = ReadRequest{}
	_ AttPDU = ReadResponse{}
	_ AttPDU = WriteRequest{}
	_ AttPDU = WriteResponse{}
	_ AttPDU = WriteCommand{}
	_ AttPDU = Notification{}
)
