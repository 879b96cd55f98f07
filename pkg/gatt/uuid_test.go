package gatt

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestUUID16Expansion(t *testing.T) {
	tests := []struct {
		short uint16
		want  string
	}{
		{0x2800, "00002800-0000-1000-8000-00805f9b34fb"},
		{0x2803, "00002803-0000-1000-8000-00805f9b34fb"},
		{0x2902, "00002902-0000-1000-8000-00805f9b34fb"},
		{0x1000, "00001000-0000-1000-8000-00805f9b34fb"},
		{0x1001, "00001001-0000-1000-8000-00805f9b34fb"},
	}

	for _, tt := range tests {
		got := UUID16(tt.short)
		if got.String() != tt.want {
			t.Errorf("UUID16(%#04x) = %s, want %s", tt.short, got, tt.want)
		}
	}
}

func TestIs16Bit(t *testing.T) {
	v, ok := Is16Bit(UUID16(0x2902))
	if !ok || v != 0x2902 {
		t.Errorf("Is16Bit(UUID16(0x2902)) = %#04x, %v, want 0x2902, true", v, ok)
	}

	if _, ok := Is16Bit(ThroughputServiceUUID); ok {
		t.Error("Is16Bit reported a full custom UUID as base-derived")
	}

	// Same low bytes as a valid shorthand, wrong base tail.
	almost := UUID16(0x2800)
	almost[15] = 0x00
	if _, ok := Is16Bit(almost); ok {
		t.Error("Is16Bit accepted a UUID outside the base range")
	}
}

func TestEncodeUUIDLEShort(t *testing.T) {
	got := EncodeUUIDLE(UUID16(0x1001))
	want := []byte{0x01, 0x10}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeUUIDLE = % x, want % x", got, want)
	}
}

func TestEncodeUUIDLEFull(t *testing.T) {
	got := EncodeUUIDLE(ThroughputServiceUUID)
	if len(got) != 16 {
		t.Fatalf("EncodeUUIDLE length = %d, want 16", len(got))
	}
	for i := 0; i < 16; i++ {
		if got[i] != ThroughputServiceUUID[15-i] {
			t.Fatalf("EncodeUUIDLE byte %d = %#02x, want %#02x", i, got[i], ThroughputServiceUUID[15-i])
		}
	}
}

func TestDecodeUUIDLE(t *testing.T) {
	u, err := DecodeUUIDLE([]byte{0x00, 0x28})
	if err != nil {
		t.Fatalf("DecodeUUIDLE(2 bytes) error: %v", err)
	}
	if u != TypePrimaryService {
		t.Errorf("DecodeUUIDLE = %s, want %s", u, TypePrimaryService)
	}

	u, err = DecodeUUIDLE(EncodeUUIDLE(ThroughputServiceUUID))
	if err != nil {
		t.Fatalf("DecodeUUIDLE(16 bytes) error: %v", err)
	}
	if u != ThroughputServiceUUID {
		t.Errorf("DecodeUUIDLE round trip = %s, want %s", u, ThroughputServiceUUID)
	}

	for _, n := range []int{0, 1, 3, 15, 17} {
		if _, err := DecodeUUIDLE(make([]byte, n)); err != ErrBadUUIDLength {
			t.Errorf("DecodeUUIDLE(%d bytes) error = %v, want %v", n, err, ErrBadUUIDLength)
		}
	}
}

func TestDecodeUUIDLERejectsNil(t *testing.T) {
	if _, err := DecodeUUIDLE(nil); err != ErrBadUUIDLength {
		t.Errorf("DecodeUUIDLE(nil) error = %v, want %v", err, ErrBadUUIDLength)
	}
}

func TestUUID16RoundTripThroughWire(t *testing.T) {
	for _, short := range []uint16{0x0001, 0x1000, 0x2800, 0xFFFF} {
		enc := EncodeUUIDLE(UUID16(short))
		dec, err := DecodeUUIDLE(enc)
		if err != nil {
			t.Fatalf("DecodeUUIDLE(%#04x) error: %v", short, err)
		}
		got, ok := Is16Bit(dec)
		if !ok || got != short {
			t.Errorf("round trip of %#04x = %#04x, %v", short, got, ok)
		}
	}
}

func TestWellKnownTypesAreDistinct(t *testing.T) {
	seen := map[uuid.UUID]string{}
	for name, u := range map[string]uuid.UUID{
		"TypePrimaryService": TypePrimaryService,
		"TypeCharacteristic": TypeCharacteristic,
		"TypeClientConfig":   TypeClientConfig,
		"ControlCharUUID":    ControlCharUUID,
		"DataCharUUID":       DataCharUUID,
	} {
		if prev, dup := seen[u]; dup {
			t.Errorf("%s collides with %s", name, prev)
		}
		seen[u] = name
	}
}
