package peripheral

import "github.com/airspeed-wireless/airspeed-go/pkg/log"

// Control point opcodes.
const (
	// controlOpSetStreaming starts or stops the stream. One operand
	// byte: 0x01 starts, anything else stops.
	controlOpSetStreaming uint8 = 0x01
)

// handleControlWrite decodes a control point write. Writes shorter
// than opcode plus operand and writes with an unknown opcode are
// accepted and ignored; the transport-level write has already
// succeeded by the time the value gets here.
func (p *Peripheral) handleControlWrite(value []byte) {
	if len(value) < 2 {
		var op uint8
		if len(value) > 0 {
			op = value[0]
		}
		p.logControl(op, nil, true)
		p.debugLog("control write too short", "len", len(value))
		return
	}

	op := value[0]
	if op != controlOpSetStreaming {
		p.logControl(op, nil, true)
		p.debugLog("unknown control opcode", "opcode", op)
		return
	}

	enabled := value[1] == 0x01
	wasActive := p.gate.StreamingActive()
	p.gate.SetStreamingRequested(enabled)

	p.logControl(op, &enabled, false)
	p.debugLog("streaming requested", "enabled", enabled)

	reason := "control stop"
	if enabled {
		reason = "control start"
	}
	p.noteStreamGate(wasActive, reason)
}

func (p *Peripheral) logControl(op uint8, enabled *bool, ignored bool) {
	p.logEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerService,
		Category:  log.CategoryControl,
		Control: &log.ControlEvent{
			Opcode:  op,
			Enabled: enabled,
			Ignored: ignored,
		},
	})
}
