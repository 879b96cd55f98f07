package link

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Tracker errors.
var (
	// ErrAlreadyConnected is returned when a central attaches while
	// another one holds the link. The caller terminates the newcomer
	// and keeps the existing connection.
	ErrAlreadyConnected = errors.New("link: already connected to a central")

	// ErrNoActiveConnection is returned by senders when no central is
	// attached.
	ErrNoActiveConnection = errors.New("link: no active connection")
)

// Conn is the transport handle the tracker guards. The concrete type
// lives in pkg/transport.
type Conn interface {
	ID() uuid.UUID
	RemoteAddr() string
	Close() error
}

// Params holds the negotiated link parameters. They are recorded for
// inspection and logging only; timing enforcement happens in the
// transport layer.
type Params struct {
	Interval time.Duration
	Latency  uint16
	Timeout  time.Duration
}

// Tracker owns the peripheral's view of the attached central: the
// connection handle and the transmission unit size used to slice
// outgoing notifications.
type Tracker struct {
	mu     sync.Mutex
	conn   Conn
	params *Params

	unitSize atomic.Uint32

	onUp   func(Conn)
	onDown func(reason string)
}

// NewTracker returns a tracker with no attached central and the
// default transmission unit size.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.unitSize.Store(uint32(wire.DefaultMTU))
	return t
}

// OnConnected attaches a central. While one is attached, further
// attachments fail with ErrAlreadyConnected and leave the existing
// link untouched. Attachment resets the unit size to the default;
// the value negotiated on a previous link never leaks into a new one.
func (t *Tracker) OnConnected(c Conn) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.conn = c
	t.params = nil
	t.unitSize.Store(uint32(wire.DefaultMTU))
	up := t.onUp
	t.mu.Unlock()

	if up != nil {
		up(c)
	}
	return nil
}

// OnDisconnected releases the link. It is a no-op when no central is
// attached, so transport teardown may report it more than once.
func (t *Tracker) OnDisconnected(reason string) {
	t.mu.Lock()
	if t.conn == nil {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.params = nil
	down := t.onDown
	t.mu.Unlock()

	if down != nil {
		down(reason)
	}
}

// OnUnitSizeUpdated stores the negotiated transmit unit, clamped to
// [wire.DefaultMTU, wire.MaxMTU]. The receive unit is accepted for
// symmetry with the transport callback but not used for slicing.
func (t *Tracker) OnUnitSizeUpdated(tx, rx uint16) {
	if tx < wire.DefaultMTU {
		tx = wire.DefaultMTU
	}
	if tx > wire.MaxMTU {
		tx = wire.MaxMTU
	}
	_ = rx
	t.unitSize.Store(uint32(tx))
}

// UnitSize returns the live transmission unit size. Senders read it
// once per send pass and must not cache it across passes.
func (t *Tracker) UnitSize() uint16 {
	return uint16(t.unitSize.Load())
}

// Conn returns the attached connection, or nil.
func (t *Tracker) Conn() Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// Connected reports whether a central is attached.
func (t *Tracker) Connected() bool {
	return t.Conn() != nil
}

// SetParams records the link parameters agreed with the central.
func (t *Tracker) SetParams(p Params) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.params = &p
}

// Params returns the recorded link parameters, if any were agreed.
func (t *Tracker) Params() (Params, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.params == nil {
		return Params{}, false
	}
	return *t.params, true
}

// OnUp sets a callback fired after a central attaches.
func (t *Tracker) OnUp(fn func(Conn)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUp = fn
}

// OnDown sets a callback fired after the link is released.
func (t *Tracker) OnDown(fn func(reason string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDown = fn
}
