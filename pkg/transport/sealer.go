package transport

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Sealing errors.
var (
	// ErrSealOpen indicates an inbound sealed frame that failed
	// authentication. The link is unusable past this point because
	// the counters have diverged.
	ErrSealOpen = errors.New("transport: sealed frame authentication failed")
)

// Direction prefixes keep the two nonce streams disjoint.
var (
	noncePrefixInitiator = [4]byte{'i', '2', 'r', 0}
	noncePrefixResponder = [4]byte{'r', '2', 'i', 0}
)

// Sealer encrypts and decrypts frame payloads with ChaCha20-Poly1305.
// Nonces are direction prefix plus a message counter, so each side
// seals with its own stream and opens the peer's. The frame header
// (length and channel) rides as associated data.
//
// The send counter is protected by the FrameWriter's lock; the
// receive counter is only touched by the single reader goroutine.
type Sealer struct {
	aead        cipher.AEAD
	sendCounter uint64
	recvCounter uint64
	sendPrefix  [4]byte
	recvPrefix  [4]byte
}

// NewSealer creates a sealer from the pairing-derived link key.
// initiator selects which nonce stream this side seals with; the two
// ends of a link must pass opposite values.
func NewSealer(key [32]byte, initiator bool) (*Sealer, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("transport: sealer init: %w", err)
	}
	s := &Sealer{aead: aead}
	if initiator {
		s.sendPrefix = noncePrefixInitiator
		s.recvPrefix = noncePrefixResponder
	} else {
		s.sendPrefix = noncePrefixResponder
		s.recvPrefix = noncePrefixInitiator
	}
	return s, nil
}

// seal encrypts payload for sending on channel.
func (s *Sealer) seal(channel wire.ChannelID, payload []byte) ([]byte, error) {
	nonce := s.makeNonce(s.sendPrefix, s.sendCounter)
	s.sendCounter++
	return s.aead.Seal(nil, nonce, payload, aad(channel, len(payload)+chacha20poly1305.Overhead)), nil
}

// open decrypts an inbound payload received on channel.
func (s *Sealer) open(channel wire.ChannelID, ciphertext []byte) ([]byte, error) {
	nonce := s.makeNonce(s.recvPrefix, s.recvCounter)
	plain, err := s.aead.Open(nil, nonce, ciphertext, aad(channel, len(ciphertext)))
	if err != nil {
		return nil, ErrSealOpen
	}
	s.recvCounter++
	return plain, nil
}

func (s *Sealer) makeNonce(prefix [4]byte, counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	copy(nonce, prefix[:])
	binary.LittleEndian.PutUint64(nonce[4:], counter)
	return nonce
}

// aad reproduces the frame header the payload travels under.
func aad(channel wire.ChannelID, payloadLen int) []byte {
	hdr := make([]byte, wire.L2CAPHeaderSize)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(payloadLen))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(channel))
	return hdr
}
