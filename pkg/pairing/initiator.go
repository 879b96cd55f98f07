package pairing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// initiatorState tracks the central-side exchange.
type initiatorState int

const (
	initiatorIdle initiatorState = iota
	initiatorAwaitResponse
	initiatorAwaitPublicKey
	initiatorDone
)

// Initiator drives the central side of a pairing exchange. Start
// produces the opening request; every inbound security PDU goes
// through Handle, whose reply (if any) is sent back to the peer.
type Initiator struct {
	central    uuid.UUID
	peripheral uuid.UUID

	exchange *Exchange
	state    initiatorState
	ltk      [LTKSize]byte
}

// NewInitiator creates an initiator for a link between the given
// identities.
func NewInitiator(central, peripheral uuid.UUID) (*Initiator, error) {
	exchange, err := NewExchange()
	if err != nil {
		return nil, err
	}
	return &Initiator{
		central:    central,
		peripheral: peripheral,
		exchange:   exchange,
	}, nil
}

// Start returns the pairing request that opens the exchange.
func (i *Initiator) Start() wire.SMPPDU {
	i.state = initiatorAwaitResponse
	return wire.PairingRequest{
		IOCapability: wire.IOCapNoInputNoOutput,
		MaxKeySize:   LTKSize,
	}
}

// Handle processes one inbound pairing PDU. The returned reply, when
// non-nil, must be sent to the peer. After the peer's public key is
// handled the exchange is complete and the link can be sealed.
func (i *Initiator) Handle(pdu wire.SMPPDU) (wire.SMPPDU, error) {
	if failed, ok := pdu.(wire.PairingFailed); ok {
		i.state = initiatorIdle
		return nil, fmt.Errorf("%w: reason 0x%02X", ErrPairingFailed, failed.Reason)
	}

	switch i.state {
	case initiatorAwaitResponse:
		rsp, ok := pdu.(wire.PairingResponse)
		if !ok {
			return nil, fmt.Errorf("%w: %s while awaiting pairing response", ErrUnexpectedPDU, pdu.Code())
		}
		if rsp.MaxKeySize < LTKSize {
			i.state = initiatorIdle
			return wire.PairingFailed{Reason: wire.PairingFailedUnsupported},
				fmt.Errorf("%w: peer key size %d", ErrUnsupportedPairing, rsp.MaxKeySize)
		}
		i.state = initiatorAwaitPublicKey
		return wire.PairingPublicKey{Key: i.exchange.PublicKey()}, nil

	case initiatorAwaitPublicKey:
		pub, ok := pdu.(wire.PairingPublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s while awaiting public key", ErrUnexpectedPDU, pdu.Code())
		}
		ltk, err := i.exchange.DeriveLTK(pub.Key, i.central, i.peripheral)
		if err != nil {
			i.state = initiatorIdle
			return wire.PairingFailed{Reason: wire.PairingFailedConfirmValue}, err
		}
		i.ltk = ltk
		i.state = initiatorDone
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %s outside an exchange", ErrUnexpectedPDU, pdu.Code())
	}
}

// Done reports whether the exchange completed.
func (i *Initiator) Done() bool {
	return i.state == initiatorDone
}

// LTK returns the derived long term key. Only valid once Done.
func (i *Initiator) LTK() ([LTKSize]byte, bool) {
	return i.ltk, i.state == initiatorDone
}
