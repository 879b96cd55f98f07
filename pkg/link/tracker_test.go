package link

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

type fakeConn struct {
	id     uuid.UUID
	addr   string
	closed bool
}

func (f *fakeConn) ID() uuid.UUID     { return f.id }
func (f *fakeConn) RemoteAddr() string { return f.addr }
func (f *fakeConn) Close() error       { f.closed = true; return nil }

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{id: uuid.New(), addr: addr}
}

func TestTrackerStartsDisconnected(t *testing.T) {
	tr := NewTracker()

	if tr.Connected() {
		t.Error("new tracker reports connected")
	}
	if tr.Conn() != nil {
		t.Error("new tracker holds a connection")
	}
	if got := tr.UnitSize(); got != wire.DefaultMTU {
		t.Errorf("UnitSize = %d, want %d", got, wire.DefaultMTU)
	}
}

func TestTrackerOnConnected(t *testing.T) {
	tr := NewTracker()
	c := newFakeConn("10.0.0.2:4444")

	if err := tr.OnConnected(c); err != nil {
		t.Fatalf("OnConnected error: %v", err)
	}
	if !tr.Connected() {
		t.Error("tracker not connected after OnConnected")
	}
	if tr.Conn() != Conn(c) {
		t.Error("Conn() did not return the attached handle")
	}
}

func TestTrackerRejectsSecondCentral(t *testing.T) {
	tr := NewTracker()
	first := newFakeConn("10.0.0.2:4444")
	second := newFakeConn("10.0.0.3:5555")

	if err := tr.OnConnected(first); err != nil {
		t.Fatalf("OnConnected(first) error: %v", err)
	}
	if err := tr.OnConnected(second); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("OnConnected(second) = %v, want %v", err, ErrAlreadyConnected)
	}

	// The existing link stays in place.
	if tr.Conn() != Conn(first) {
		t.Error("second attachment displaced the existing connection")
	}
}

func TestTrackerConnectResetsUnitSize(t *testing.T) {
	tr := NewTracker()

	if err := tr.OnConnected(newFakeConn("a")); err != nil {
		t.Fatal(err)
	}
	tr.OnUnitSizeUpdated(185, 185)
	if got := tr.UnitSize(); got != 185 {
		t.Fatalf("UnitSize = %d, want 185", got)
	}

	tr.OnDisconnected("remote closed")
	if err := tr.OnConnected(newFakeConn("b")); err != nil {
		t.Fatal(err)
	}

	// The value negotiated on the old link must not leak into the new one.
	if got := tr.UnitSize(); got != wire.DefaultMTU {
		t.Errorf("UnitSize after reconnect = %d, want %d", got, wire.DefaultMTU)
	}
}

func TestTrackerUnitSizeClamp(t *testing.T) {
	tests := []struct {
		tx   uint16
		want uint16
	}{
		{0, wire.DefaultMTU},
		{10, wire.DefaultMTU},
		{23, 23},
		{185, 185},
		{512, 512},
		{513, wire.MaxMTU},
		{65535, wire.MaxMTU},
	}

	for _, tt := range tests {
		tr := NewTracker()
		tr.OnUnitSizeUpdated(tt.tx, tt.tx)
		if got := tr.UnitSize(); got != tt.want {
			t.Errorf("OnUnitSizeUpdated(%d): UnitSize = %d, want %d", tt.tx, got, tt.want)
		}
	}
}

func TestTrackerOnDisconnected(t *testing.T) {
	tr := NewTracker()
	var downReason string
	downCount := 0
	tr.OnDown(func(reason string) {
		downReason = reason
		downCount++
	})

	if err := tr.OnConnected(newFakeConn("a")); err != nil {
		t.Fatal(err)
	}
	tr.OnDisconnected("supervision timeout")

	if tr.Connected() {
		t.Error("tracker still connected after OnDisconnected")
	}
	if downReason != "supervision timeout" {
		t.Errorf("down reason = %q", downReason)
	}

	// Duplicate teardown reports must not refire the callback.
	tr.OnDisconnected("supervision timeout")
	if downCount != 1 {
		t.Errorf("down callback fired %d times, want 1", downCount)
	}
}

func TestTrackerOnUpCallback(t *testing.T) {
	tr := NewTracker()
	var got Conn
	tr.OnUp(func(c Conn) { got = c })

	c := newFakeConn("a")
	if err := tr.OnConnected(c); err != nil {
		t.Fatal(err)
	}
	if got != Conn(c) {
		t.Error("up callback did not receive the attached handle")
	}
}

func TestTrackerParams(t *testing.T) {
	tr := NewTracker()

	if _, ok := tr.Params(); ok {
		t.Error("new tracker reports recorded params")
	}

	p := Params{Interval: 30 * time.Millisecond, Latency: 0, Timeout: 4 * time.Second}
	tr.SetParams(p)

	got, ok := tr.Params()
	if !ok {
		t.Fatal("Params() not recorded")
	}
	if got != p {
		t.Errorf("Params = %+v, want %+v", got, p)
	}

	// Params belong to the link and vanish with it.
	if err := tr.OnConnected(newFakeConn("a")); err != nil {
		t.Fatal(err)
	}
	tr.SetParams(p)
	tr.OnDisconnected("closed")
	if _, ok := tr.Params(); ok {
		t.Error("params survived disconnect")
	}
}
