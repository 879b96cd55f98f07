package pairing

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Pairing constants.
const (
	// LTKSize is the size of the derived long term key in bytes.
	LTKSize = 32

	// ltkSalt is the HKDF salt for long term key derivation.
	ltkSalt = "airspeed-ltk-v1"
)

// Pairing errors.
var (
	// ErrInvalidPublicKey indicates a peer key that is not a valid
	// uncompressed P-256 point.
	ErrInvalidPublicKey = errors.New("pairing: invalid public key")

	// ErrPairingFailed indicates the peer aborted the exchange.
	ErrPairingFailed = errors.New("pairing: pairing failed")

	// ErrUnsupportedPairing indicates capabilities this implementation
	// cannot serve.
	ErrUnsupportedPairing = errors.New("pairing: unsupported pairing parameters")

	// ErrUnexpectedPDU indicates a pairing PDU out of sequence.
	ErrUnexpectedPDU = errors.New("pairing: unexpected PDU")
)

// Exchange holds one side's ephemeral key agreement state.
type Exchange struct {
	priv *ecdh.PrivateKey
}

// NewExchange generates a fresh ephemeral key pair.
func NewExchange() (*Exchange, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("pairing: generate ephemeral key: %w", err)
	}
	return &Exchange{priv: priv}, nil
}

// PublicKey returns the local public key as an uncompressed P-256
// point, ready for a pairing public key PDU.
func (e *Exchange) PublicKey() []byte {
	return e.priv.PublicKey().Bytes()
}

// DeriveLTK combines the peer's public key with the local private key
// and stretches the shared secret into the long term key. The key is
// bound to the two link identities; both sides must pass them in the
// same order.
func (e *Exchange) DeriveLTK(peerPublic []byte, central, peripheral uuid.UUID) ([LTKSize]byte, error) {
	var ltk [LTKSize]byte

	peer, err := ecdh.P256().NewPublicKey(peerPublic)
	if err != nil {
		return ltk, ErrInvalidPublicKey
	}

	shared, err := e.priv.ECDH(peer)
	if err != nil {
		return ltk, fmt.Errorf("pairing: key agreement: %w", err)
	}

	// Bind the key to who paired with whom.
	info := make([]byte, 0, len(central)+len(peripheral))
	info = append(info, central[:]...)
	info = append(info, peripheral[:]...)

	hkdfReader := hkdf.New(sha256.New, shared, []byte(ltkSalt), info)
	if _, err := io.ReadFull(hkdfReader, ltk[:]); err != nil {
		return ltk, fmt.Errorf("pairing: derive long term key: %w", err)
	}

	return ltk, nil
}
