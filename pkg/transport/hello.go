package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Role identifies which end of a link a party is.
type Role uint8

const (
	// RolePeripheral accepts links and serves the attribute table.
	RolePeripheral Role = 0x00
	// RoleCentral initiates links and drives the peripheral.
	RoleCentral Role = 0x01
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RolePeripheral:
		return "PERIPHERAL"
	case RoleCentral:
		return "CENTRAL"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(r))
	}
}

// HelloStatus is the acceptor's verdict on a link attempt.
type HelloStatus uint8

const (
	// HelloOK accepts the link.
	HelloOK HelloStatus = 0x00
	// HelloVersionMismatch refuses a protocol version the acceptor
	// does not speak.
	HelloVersionMismatch HelloStatus = 0x01
	// HelloBusy refuses the link because a central already holds the
	// peripheral.
	HelloBusy HelloStatus = 0x02
)

// String returns the status name.
func (s HelloStatus) String() string {
	switch s {
	case HelloOK:
		return "OK"
	case HelloVersionMismatch:
		return "VERSION_MISMATCH"
	case HelloBusy:
		return "BUSY"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(s))
	}
}

// ProtocolVersion is the hello version this package speaks.
const ProtocolVersion uint8 = 1

// helloMagic opens every hello.
var helloMagic = [4]byte{'A', 'S', 'P', 'D'}

// helloSize is magic + version + role + identity + status.
const helloSize = 4 + 1 + 1 + 16 + 1

// Hello errors.
var (
	// ErrHelloMalformed indicates a hello without the expected magic.
	ErrHelloMalformed = errors.New("transport: malformed hello")

	// ErrHelloVersionMismatch indicates the peer speaks another
	// protocol version.
	ErrHelloVersionMismatch = errors.New("transport: protocol version mismatch")

	// ErrLinkBusy indicates the peripheral refused the link because
	// another central holds it.
	ErrLinkBusy = errors.New("transport: peripheral busy with another central")

	// ErrHelloRefused indicates a refusal with an unknown status.
	ErrHelloRefused = errors.New("transport: hello refused")
)

// Hello is the fixed-size link establishment message. Both sides send
// one before any L2CAP traffic; only the acceptor's Status matters.
type Hello struct {
	Version  uint8
	Role     Role
	Identity uuid.UUID
	Status   HelloStatus
}

// encode serializes the hello.
func (h Hello) encode() []byte {
	buf := make([]byte, helloSize)
	copy(buf[0:4], helloMagic[:])
	buf[4] = h.Version
	buf[5] = byte(h.Role)
	copy(buf[6:22], h.Identity[:])
	buf[22] = byte(h.Status)
	return buf
}

// writeHello writes one hello to w.
func writeHello(w io.Writer, h Hello) error {
	if _, err := w.Write(h.encode()); err != nil {
		return fmt.Errorf("transport: write hello: %w", err)
	}
	return nil
}

// readHello reads and validates one hello from r.
func readHello(r io.Reader) (Hello, error) {
	buf := make([]byte, helloSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Hello{}, fmt.Errorf("transport: read hello: %w", err)
	}
	if !bytes.Equal(buf[0:4], helloMagic[:]) {
		return Hello{}, ErrHelloMalformed
	}
	var h Hello
	h.Version = buf[4]
	h.Role = Role(buf[5])
	copy(h.Identity[:], buf[6:22])
	h.Status = HelloStatus(buf[22])
	return h, nil
}

// statusError maps a refusal status to its sentinel.
func statusError(s HelloStatus) error {
	switch s {
	case HelloOK:
		return nil
	case HelloVersionMismatch:
		return ErrHelloVersionMismatch
	case HelloBusy:
		return ErrLinkBusy
	default:
		return fmt.Errorf("%w: status %s", ErrHelloRefused, s)
	}
}
