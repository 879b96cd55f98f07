package gatt

// Control characteristic opcodes. A control value is an opcode byte
// followed by its operand bytes.
const (
	// ControlOpSetStreaming starts or stops the notification stream.
	// One operand byte: 0x01 starts, anything else stops.
	ControlOpSetStreaming uint8 = 0x01
)

// ControlSetStreaming encodes a control write that starts or stops the
// stream.
func ControlSetStreaming(enable bool) []byte {
	operand := byte(0x00)
	if enable {
		operand = 0x01
	}
	return []byte{ControlOpSetStreaming, operand}
}
