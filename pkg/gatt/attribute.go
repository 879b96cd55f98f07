package gatt

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Props are the characteristic property bits carried in the
// characteristic declaration value.
type Props uint8

const (
	PropRead                 Props = 0x02
	PropWriteWithoutResponse Props = 0x04
	PropWrite                Props = 0x08
	PropNotify               Props = 0x10
)

// Perm controls which ATT operations an attribute accepts.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermWriteCommand
)

// Attribute is one row of the table. Value holds static content;
// OnRead and OnWrite, when set, take precedence over it.
type Attribute struct {
	Handle uint16
	Type   uuid.UUID
	Perm   Perm
	Value  []byte

	// OnRead produces the current value. A non-zero AttError is
	// returned to the client as an error response.
	OnRead func() ([]byte, wire.AttError)

	// OnWrite consumes an incoming value. A non-zero AttError is
	// returned to the client for writes with response; write
	// commands discard it.
	OnWrite func(value []byte) wire.AttError
}

// Table is a handle-ordered attribute table. Reads and writes are
// dispatched under a lock so handler registration and lookup never
// race with traffic.
type Table struct {
	mu    sync.RWMutex
	attrs map[uint16]*Attribute
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{attrs: make(map[uint16]*Attribute)}
}

// Add registers an attribute. A duplicate handle replaces the
// previous entry.
func (t *Table) Add(a *Attribute) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attrs[a.Handle] = a
}

// Lookup returns the attribute at handle, or nil.
func (t *Table) Lookup(handle uint16) *Attribute {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attrs[handle]
}

// Handles returns all registered handles in ascending order.
func (t *Table) Handles() []uint16 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	hs := make([]uint16, 0, len(t.attrs))
	for h := range t.attrs {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// Read resolves a read request against the table. The returned
// AttError is zero on success.
func (t *Table) Read(handle uint16) ([]byte, wire.AttError) {
	t.mu.RLock()
	a := t.attrs[handle]
	t.mu.RUnlock()
	if a == nil {
		return nil, wire.AttErrInvalidHandle
	}
	if a.Perm&PermRead == 0 {
		return nil, wire.AttErrReadNotPermitted
	}
	if a.OnRead != nil {
		return a.OnRead()
	}
	out := make([]byte, len(a.Value))
	copy(out, a.Value)
	return out, 0
}

// Write resolves a write against the table. command selects the
// write-command permission check instead of the write-request one.
// The returned AttError is zero on success.
func (t *Table) Write(handle uint16, value []byte, command bool) wire.AttError {
	t.mu.RLock()
	a := t.attrs[handle]
	t.mu.RUnlock()
	if a == nil {
		return wire.AttErrInvalidHandle
	}
	want := PermWrite
	if command {
		want = PermWriteCommand
	}
	if a.Perm&want == 0 {
		return wire.AttErrWriteNotPermitted
	}
	if a.OnWrite != nil {
		return a.OnWrite(value)
	}
	a.Value = make([]byte, len(value))
	copy(a.Value, value)
	return 0
}

// ServiceDeclValue encodes a primary service declaration value, the
// service UUID in little-endian wire form.
func ServiceDeclValue(service uuid.UUID) []byte {
	return EncodeUUIDLE(service)
}

// CharacteristicDeclValue encodes a characteristic declaration value:
// properties, the value handle, then the characteristic type UUID.
func CharacteristicDeclValue(props Props, valueHandle uint16, charType uuid.UUID) []byte {
	out := make([]byte, 3, 3+16)
	out[0] = byte(props)
	binary.LittleEndian.PutUint16(out[1:3], valueHandle)
	return append(out, EncodeUUIDLE(charType)...)
}
