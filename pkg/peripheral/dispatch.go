package peripheral

import (
	"fmt"

	"github.com/airspeed-wireless/airspeed-go/pkg/gatt"
	"github.com/airspeed-wireless/airspeed-go/pkg/link"
	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/pairing"
	"github.com/airspeed-wireless/airspeed-go/pkg/transport"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// handleFrame routes one inbound frame by channel. Frames from a
// connection that lost the attach race are dropped; only the admitted
// link reaches the protocol handlers.
func (p *Peripheral) handleFrame(conn *transport.Conn, f wire.Frame) {
	if p.active.Load() != conn {
		p.debugLog("frame from unattached connection dropped", "remote", conn.RemoteAddr())
		return
	}

	switch f.Channel {
	case wire.ChannelATT:
		p.handleATT(conn, f.Payload)
	case wire.ChannelSignal:
		p.handleSignal(conn, f.Payload)
	case wire.ChannelSecurity:
		p.handleSecurity(conn, f.Payload)
	default:
		p.debugLog("frame on unhandled channel", "channel", f.Channel)
	}
}

// handleATT dispatches one attribute protocol PDU against the table.
func (p *Peripheral) handleATT(conn *transport.Conn, payload []byte) {
	pdu, err := wire.ParseAtt(payload)
	if err != nil {
		p.debugLog("undecodable ATT PDU", "err", err)
		// Unknown requests get an error response; the command flag
		// bit marks PDUs the client does not expect an answer to.
		if len(payload) > 0 && payload[0]&0x40 == 0 {
			p.sendATT(conn, wire.ErrorResponse{
				Request: wire.AttOpcode(payload[0]),
				Code:    wire.AttErrRequestNotSupported,
			})
		}
		return
	}

	switch pdu := pdu.(type) {
	case wire.ExchangeMTURequest:
		p.handleMTUExchange(conn, pdu)

	case wire.ReadRequest:
		value, errCode := p.table.Read(pdu.Handle)
		if errCode != 0 {
			p.sendATT(conn, wire.ErrorResponse{
				Request: wire.AttOpReadRequest,
				Handle:  pdu.Handle,
				Code:    errCode,
			})
			return
		}
		p.sendATT(conn, wire.ReadResponse{Value: value})

	case wire.WriteRequest:
		if errCode := p.table.Write(pdu.Handle, pdu.Value, false); errCode != 0 {
			p.sendATT(conn, wire.ErrorResponse{
				Request: wire.AttOpWriteRequest,
				Handle:  pdu.Handle,
				Code:    errCode,
			})
			return
		}
		p.sendATT(conn, wire.WriteResponse{})

	case wire.WriteCommand:
		// Write commands never produce a response, success or not.
		_ = p.table.Write(pdu.Handle, pdu.Value, true)

	default:
		if pdu.Opcode().IsRequest() {
			p.sendATT(conn, wire.ErrorResponse{
				Request: pdu.Opcode(),
				Code:    wire.AttErrRequestNotSupported,
			})
		}
	}
}

// handleMTUExchange answers with the local receive MTU and adopts the
// smaller of the two announcements as the transmission unit.
func (p *Peripheral) handleMTUExchange(conn *transport.Conn, req wire.ExchangeMTURequest) {
	if err := p.sendATT(conn, wire.ExchangeMTUResponse{MTU: wire.MaxMTU}); err != nil {
		return
	}

	tx := req.MTU
	if tx > wire.MaxMTU {
		tx = wire.MaxMTU
	}
	p.tracker.OnUnitSizeUpdated(tx, wire.MaxMTU)

	p.debugLog("unit size negotiated", "unit", p.tracker.UnitSize())
}

// handleClientConfigWrite is wired into the CCCD attribute. The gate
// follows the notify bit; everything else about the value is kept for
// reads but has no behavior.
func (p *Peripheral) handleClientConfigWrite(cfg gatt.ClientConfig) wire.AttError {
	p.cccdMu.Lock()
	p.cccd = cfg
	p.cccdMu.Unlock()

	enabled := cfg.NotificationsEnabled()
	wasActive := p.gate.StreamingActive()
	p.gate.SetNotificationsEnabled(enabled)

	state := "DISABLED"
	reason := "subscription disabled"
	if enabled {
		state = "ENABLED"
		reason = "subscription enabled"
	}
	p.logEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerATT,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			NewState: state,
		},
	})
	p.noteStreamGate(wasActive, reason)

	return 0
}

// clientConfig is wired into the CCCD attribute's read path.
func (p *Peripheral) clientConfig() gatt.ClientConfig {
	p.cccdMu.Lock()
	defer p.cccdMu.Unlock()
	return p.cccd
}

// sendATT writes one ATT PDU to the link.
func (p *Peripheral) sendATT(conn *transport.Conn, pdu wire.AttPDU) error {
	err := conn.Send(wire.Frame{Channel: wire.ChannelATT, Payload: pdu.Marshal()})
	if err != nil {
		p.debugLog("ATT send failed", "opcode", pdu.Opcode(), "err", err)
	}
	return err
}

// handleSignal dispatches one signaling PDU. Echo traffic never gets
// here; the transport answers it inside the read path.
func (p *Peripheral) handleSignal(conn *transport.Conn, payload []byte) {
	pdu, err := wire.ParseSignal(payload)
	if err != nil {
		p.debugLog("undecodable signaling PDU", "err", err)
		return
	}

	switch pdu := pdu.(type) {
	case wire.ConnParamUpdateRequest:
		params := link.Params{
			Interval: pdu.Params.IntervalMaxDuration(),
			Latency:  pdu.Params.Latency,
			Timeout:  pdu.Params.TimeoutDuration(),
		}
		p.tracker.SetParams(params)
		if params.Timeout > 0 {
			conn.SetSupervisionTimeout(params.Timeout)
		}

		rsp := wire.ConnParamUpdateResponse{
			Identifier: pdu.Identifier,
			Result:     wire.ConnParamsAccepted,
		}
		if err := conn.Send(wire.Frame{Channel: wire.ChannelSignal, Payload: rsp.Marshal()}); err != nil {
			p.debugLog("conn param response send failed", "err", err)
			return
		}

		p.logEvent(log.Event{
			Direction: log.DirectionIn,
			Layer:     log.LayerSignal,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityLink,
				NewState: "PARAMS_UPDATED",
				Reason: fmt.Sprintf("interval=%s latency=%d timeout=%s",
					params.Interval, params.Latency, params.Timeout),
			},
		})
		p.debugLog("connection parameters updated",
			"interval", params.Interval, "latency", params.Latency, "timeout", params.Timeout)

	default:
		p.debugLog("unexpected signaling PDU", "code", pdu.Code())
	}
}

// handleSecurity feeds one pairing PDU to the responder. When the
// exchange completes, the link is sealed right after the responder's
// public key goes out, and the bond is persisted.
func (p *Peripheral) handleSecurity(conn *transport.Conn, payload []byte) {
	pdu, err := wire.ParseSMP(payload)
	if err != nil {
		p.debugLog("undecodable security PDU", "err", err)
		return
	}

	p.pairingMu.Lock()
	r := p.responder
	if r == nil {
		r = pairing.NewResponder(conn.RemoteID(), p.config.Identity)
		p.responder = r
	}
	reply, herr := r.Handle(pdu)
	done := r.Done()
	p.pairingMu.Unlock()

	if reply != nil {
		if err := conn.Send(wire.Frame{Channel: wire.ChannelSecurity, Payload: reply.Marshal()}); err != nil {
			p.debugLog("pairing reply send failed", "err", err)
			return
		}
	}

	if herr != nil {
		p.debugLog("pairing failed", "err", herr)
		p.logEvent(log.Event{
			Layer:    log.LayerSecurity,
			Category: log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerSecurity,
				Message: herr.Error(),
				Context: "pairing",
			},
		})
		return
	}

	if done {
		ltk, ok := r.LTK()
		if !ok {
			return
		}
		if err := conn.EnableSealing(ltk); err != nil {
			p.debugLog("sealing failed", "err", err)
			return
		}
		p.saveBond(conn.RemoteID(), ltk)

		p.logEvent(log.Event{
			Layer:    log.LayerSecurity,
			Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityLink,
				NewState: "SEALED",
				Reason:   "pairing complete",
			},
		})
		p.debugLog("link sealed", "central", conn.RemoteID())
	}
}
