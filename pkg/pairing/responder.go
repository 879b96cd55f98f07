package pairing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// responderState tracks the peripheral-side exchange.
type responderState int

const (
	responderIdle responderState = iota
	responderAwaitPublicKey
	responderDone
)

// Responder answers the peripheral side of a pairing exchange. Every
// inbound security PDU goes through Handle; replies are sent back to
// the peer. Once Done, the link must be sealed right after the final
// reply (the responder's public key) goes out.
type Responder struct {
	central    uuid.UUID
	peripheral uuid.UUID

	exchange *Exchange
	state    responderState
	ltk      [LTKSize]byte
}

// NewResponder creates a responder for a link between the given
// identities.
func NewResponder(central, peripheral uuid.UUID) *Responder {
	return &Responder{
		central:    central,
		peripheral: peripheral,
	}
}

// Handle processes one inbound pairing PDU. The returned reply, when
// non-nil, must be sent to the peer even when err is also set (it
// carries the failure notification).
func (r *Responder) Handle(pdu wire.SMPPDU) (wire.SMPPDU, error) {
	if failed, ok := pdu.(wire.PairingFailed); ok {
		r.state = responderIdle
		return nil, fmt.Errorf("%w: reason 0x%02X", ErrPairingFailed, failed.Reason)
	}

	switch p := pdu.(type) {
	case wire.PairingRequest:
		// A fresh request restarts the exchange.
		if p.IOCapability != wire.IOCapNoInputNoOutput || p.MaxKeySize < LTKSize {
			r.state = responderIdle
			return wire.PairingFailed{Reason: wire.PairingFailedUnsupported},
				fmt.Errorf("%w: io cap 0x%02X, key size %d", ErrUnsupportedPairing, p.IOCapability, p.MaxKeySize)
		}
		r.state = responderAwaitPublicKey
		return wire.PairingResponse{
			IOCapability: wire.IOCapNoInputNoOutput,
			MaxKeySize:   LTKSize,
		}, nil

	case wire.PairingPublicKey:
		if r.state != responderAwaitPublicKey {
			return nil, fmt.Errorf("%w: public key without a pairing request", ErrUnexpectedPDU)
		}
		exchange, err := NewExchange()
		if err != nil {
			r.state = responderIdle
			return wire.PairingFailed{Reason: wire.PairingFailedUnsupported}, err
		}
		r.exchange = exchange

		ltk, err := exchange.DeriveLTK(p.Key, r.central, r.peripheral)
		if err != nil {
			r.state = responderIdle
			return wire.PairingFailed{Reason: wire.PairingFailedConfirmValue}, err
		}
		r.ltk = ltk
		r.state = responderDone
		return wire.PairingPublicKey{Key: exchange.PublicKey()}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedPDU, pdu.Code())
	}
}

// Done reports whether the exchange completed.
func (r *Responder) Done() bool {
	return r.state == responderDone
}

// LTK returns the derived long term key. Only valid once Done.
func (r *Responder) LTK() ([LTKSize]byte, bool) {
	return r.ltk, r.state == responderDone
}
