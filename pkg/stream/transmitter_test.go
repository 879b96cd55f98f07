package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/airspeed-wireless/airspeed-go/pkg/link"
)

// fakeLink serves UnitSize from a list so tests can present a value
// that changes between reads.
type fakeLink struct {
	connected bool
	units     []uint16
	reads     int
}

func (f *fakeLink) Connected() bool { return f.connected }

func (f *fakeLink) UnitSize() uint16 {
	u := f.units[f.reads]
	if f.reads < len(f.units)-1 {
		f.reads++
	}
	return u
}

type captureNotify struct {
	payloads [][]byte
	failAt   int // 1-based call index to fail at, 0 = never
	err      error
	calls    int
}

func (c *captureNotify) notify(value []byte) error {
	c.calls++
	if c.failAt != 0 && c.calls == c.failAt {
		return c.err
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.payloads = append(c.payloads, cp)
	return nil
}

func TestSendRequiresConnection(t *testing.T) {
	rec := &captureNotify{}
	tx := NewTransmitter(&fakeLink{connected: false, units: []uint16{185}}, rec.notify)

	err := tx.Send(make([]byte, 100))
	if !errors.Is(err, link.ErrNoActiveConnection) {
		t.Fatalf("Send = %v, want %v", err, link.ErrNoActiveConnection)
	}
	if rec.calls != 0 {
		t.Errorf("notify called %d times on dead link", rec.calls)
	}
}

func TestSendSingleNotification(t *testing.T) {
	rec := &captureNotify{}
	tx := NewTransmitter(&fakeLink{connected: true, units: []uint16{185}}, rec.notify)

	payload := bytes.Repeat([]byte{0x5A}, 182)
	if err := tx.Send(payload); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(rec.payloads) != 1 {
		t.Fatalf("notify called %d times, want 1", len(rec.payloads))
	}
	if !bytes.Equal(rec.payloads[0], payload) {
		t.Error("payload arrived modified")
	}
}

func TestSendFragments(t *testing.T) {
	// Unit 185 leaves 182 bytes per notification; 500 bytes split
	// into 182, 182 and a 136 byte remainder.
	rec := &captureNotify{}
	tx := NewTransmitter(&fakeLink{connected: true, units: []uint16{185}}, rec.notify)

	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := tx.Send(payload); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	wantSizes := []int{182, 182, 136}
	if len(rec.payloads) != len(wantSizes) {
		t.Fatalf("notify called %d times, want %d", len(rec.payloads), len(wantSizes))
	}
	off := 0
	for i, want := range wantSizes {
		if len(rec.payloads[i]) != want {
			t.Errorf("fragment %d size = %d, want %d", i, len(rec.payloads[i]), want)
		}
		if !bytes.Equal(rec.payloads[i], payload[off:off+len(rec.payloads[i])]) {
			t.Errorf("fragment %d content off", i)
		}
		off += len(rec.payloads[i])
	}
	if off != len(payload) {
		t.Errorf("fragments cover %d bytes, want %d", off, len(payload))
	}
}

func TestSendReadsUnitOnce(t *testing.T) {
	// The unit shrinks right after the first read; all fragments of
	// the pass must still use the entry value.
	rec := &captureNotify{}
	tx := NewTransmitter(&fakeLink{connected: true, units: []uint16{103, 23}}, rec.notify)

	if err := tx.Send(make([]byte, 250)); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	wantSizes := []int{100, 100, 50}
	if len(rec.payloads) != len(wantSizes) {
		t.Fatalf("notify called %d times, want %d", len(rec.payloads), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(rec.payloads[i]) != want {
			t.Errorf("fragment %d size = %d, want %d", i, len(rec.payloads[i]), want)
		}
	}
}

func TestSendStopsOnFirstFailure(t *testing.T) {
	sendErr := errors.New("transport buffer full")
	rec := &captureNotify{failAt: 2, err: sendErr}
	tx := NewTransmitter(&fakeLink{connected: true, units: []uint16{185}}, rec.notify)

	err := tx.Send(make([]byte, 500))
	if !errors.Is(err, sendErr) {
		t.Fatalf("Send = %v, want %v", err, sendErr)
	}
	// First fragment out, second failed, third never attempted.
	if rec.calls != 2 {
		t.Errorf("notify called %d times, want 2", rec.calls)
	}
}

func TestSendEmptyPayload(t *testing.T) {
	rec := &captureNotify{}
	tx := NewTransmitter(&fakeLink{connected: true, units: []uint16{23}}, rec.notify)

	if err := tx.Send(nil); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(rec.payloads) != 1 || len(rec.payloads[0]) != 0 {
		t.Errorf("empty payload produced %d notifications", len(rec.payloads))
	}
}

func TestSendAtDefaultUnit(t *testing.T) {
	// Unit 23 leaves 20 bytes per notification.
	rec := &captureNotify{}
	tx := NewTransmitter(&fakeLink{connected: true, units: []uint16{23}}, rec.notify)

	if err := tx.Send(make([]byte, 45)); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	wantSizes := []int{20, 20, 5}
	if len(rec.payloads) != len(wantSizes) {
		t.Fatalf("notify called %d times, want %d", len(rec.payloads), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(rec.payloads[i]) != want {
			t.Errorf("fragment %d size = %d, want %d", i, len(rec.payloads[i]), want)
		}
	}
}
