package log

import (
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the link (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates packet flow relative to the local endpoint.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether the local endpoint is the peripheral
	// or the central.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port of the simulated link).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// DeviceID is the peripheral's identity (UUID), when known.
	DeviceID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"9,keyasint,omitempty"`  // Raw L2CAP frames
	Packet      *PacketEvent      `cbor:"10,keyasint,omitempty"` // Decoded ATT PDUs
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Link/subscription/stream state
	Control     *ControlEvent     `cbor:"12,keyasint,omitempty"` // Control-point commands
	Stream      *StreamEvent      `cbor:"13,keyasint,omitempty"` // Stream pump snapshots
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates an inbound packet or event.
	DirectionIn Direction = 0
	// DirectionOut indicates an outbound packet or event.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerLink is the framing layer (raw L2CAP frames on the link).
	LayerLink Layer = 0
	// LayerATT is the attribute protocol layer (decoded PDUs).
	LayerATT Layer = 1
	// LayerSignal is the LE signaling channel (connection parameters).
	LayerSignal Layer = 2
	// LayerSecurity is the pairing/encryption layer.
	LayerSecurity Layer = 3
	// LayerService is the application layer (gate, pump, advertising).
	LayerService Layer = 4
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerLink:
		return "LINK"
	case LayerATT:
		return "ATT"
	case LayerSignal:
		return "SIGNAL"
	case LayerSecurity:
		return "SECURITY"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryPacket indicates a protocol packet (frame or decoded PDU).
	CategoryPacket Category = 0
	// CategoryControl indicates a decoded control-point command.
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
	// CategoryStream indicates a stream pump statistics snapshot.
	CategoryStream Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPacket:
		return "PACKET"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryStream:
		return "STREAM"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint is the peripheral or the central.
type Role uint8

const (
	// RolePeripheral indicates the streaming device.
	RolePeripheral Role = 0
	// RoleCentral indicates the measuring client.
	RoleCentral Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RolePeripheral:
		return "PERIPHERAL"
	case RoleCentral:
		return "CENTRAL"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a raw L2CAP frame at the link layer.
type FrameEvent struct {
	// Size is the full frame size in bytes, including the 4-byte header.
	Size int `cbor:"1,keyasint"`

	// Channel is the L2CAP channel the frame was carried on.
	Channel uint16 `cbor:"2,keyasint"`

	// Data is the raw payload (may be truncated for large frames).
	Data []byte `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`
}

// PacketEvent captures a decoded ATT PDU.
type PacketEvent struct {
	// Opcode of the PDU.
	Opcode wire.AttOpcode `cbor:"1,keyasint"`

	// Handle is the attribute handle, for PDUs that carry one.
	Handle *uint16 `cbor:"2,keyasint,omitempty"`

	// MTU is the announced receive MTU (exchange PDUs only).
	MTU *uint16 `cbor:"3,keyasint,omitempty"`

	// ErrorCode is set for error responses.
	ErrorCode *wire.AttError `cbor:"4,keyasint,omitempty"`

	// ValueSize is the attribute value length, for PDUs that carry a value.
	ValueSize int `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures link, subscription, and stream lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates a link (connection) state change.
	StateEntityLink StateEntity = 0
	// StateEntitySubscription indicates a notification-subscription change.
	StateEntitySubscription StateEntity = 1
	// StateEntityStream indicates a streaming-gate change.
	StateEntityStream StateEntity = 2
	// StateEntityAdvertising indicates an advertising on/off change.
	StateEntityAdvertising StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityStream:
		return "STREAM"
	case StateEntityAdvertising:
		return "ADVERTISING"
	default:
		return "UNKNOWN"
	}
}

// ControlEvent captures a decoded control-point command.
type ControlEvent struct {
	// Opcode is the first byte of the control write.
	Opcode uint8 `cbor:"1,keyasint"`

	// Enabled is the decoded streaming flag for the set-streaming command.
	Enabled *bool `cbor:"2,keyasint,omitempty"`

	// Ignored is true when the command had no effect (unknown opcode or
	// short write).
	Ignored bool `cbor:"3,keyasint,omitempty"`
}

// StreamEvent captures a stream pump statistics snapshot, typically
// emitted when streaming stops.
type StreamEvent struct {
	// Blocks is the number of payload blocks generated.
	Blocks uint64 `cbor:"1,keyasint"`

	// Bytes is the total payload bytes handed to the transmitter.
	Bytes uint64 `cbor:"2,keyasint"`

	// SendFailures counts blocks dropped on transport failure.
	SendFailures uint64 `cbor:"3,keyasint,omitempty"`

	// UnitSize is the transmission unit in effect at snapshot time.
	UnitSize uint16 `cbor:"4,keyasint,omitempty"`

	// Elapsed is the active streaming duration covered by the snapshot.
	Elapsed time.Duration `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
