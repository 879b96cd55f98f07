package gatt

import (
	"bytes"
	"testing"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

func TestThroughputTableLayout(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{})

	want := []uint16{
		HandleThroughputService,
		HandleControlDecl,
		HandleControl,
		HandleDataDecl,
		HandleData,
		HandleDataClientConfig,
	}
	got := tbl.Handles()
	if len(got) != len(want) {
		t.Fatalf("table has %d attributes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("handle[%d] = %#04x, want %#04x", i, got[i], want[i])
		}
	}
}

func TestThroughputServiceDeclaration(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{})

	value, errCode := tbl.Read(HandleThroughputService)
	if errCode != 0 {
		t.Fatalf("Read(service) error = %v", errCode)
	}
	if !bytes.Equal(value, EncodeUUIDLE(ThroughputServiceUUID)) {
		t.Errorf("service declaration = % x", value)
	}
}

func TestThroughputCharacteristicDeclarations(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{})

	control, errCode := tbl.Read(HandleControlDecl)
	if errCode != 0 {
		t.Fatalf("Read(control decl) error = %v", errCode)
	}
	wantControl := []byte{0x04, 0x03, 0x00, 0x00, 0x10}
	if !bytes.Equal(control, wantControl) {
		t.Errorf("control declaration = % x, want % x", control, wantControl)
	}

	data, errCode := tbl.Read(HandleDataDecl)
	if errCode != 0 {
		t.Fatalf("Read(data decl) error = %v", errCode)
	}
	wantData := []byte{0x10, 0x05, 0x00, 0x01, 0x10}
	if !bytes.Equal(data, wantData) {
		t.Errorf("data declaration = % x, want % x", data, wantData)
	}
}

func TestThroughputControlWriteDispatch(t *testing.T) {
	var received []byte
	tbl := NewThroughputTable(ThroughputHandlers{
		ControlWrite: func(value []byte) { received = value },
	})

	if errCode := tbl.Write(HandleControl, []byte{0x01, 0x01}, true); errCode != 0 {
		t.Fatalf("Write(control) error = %v", errCode)
	}
	if !bytes.Equal(received, []byte{0x01, 0x01}) {
		t.Errorf("handler received % x", received)
	}

	// The control value only takes write commands.
	if errCode := tbl.Write(HandleControl, []byte{0x01, 0x01}, false); errCode != wire.AttErrWriteNotPermitted {
		t.Errorf("write request to control = %v, want %v", errCode, wire.AttErrWriteNotPermitted)
	}
}

func TestThroughputControlWriteWithoutHandler(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{})
	if errCode := tbl.Write(HandleControl, []byte{0x01, 0x00}, true); errCode != 0 {
		t.Errorf("Write without handler = %v, want success", errCode)
	}
}

func TestThroughputClientConfigWrite(t *testing.T) {
	var received ClientConfig
	tbl := NewThroughputTable(ThroughputHandlers{
		ClientConfigWrite: func(cfg ClientConfig) wire.AttError {
			received = cfg
			return 0
		},
	})

	if errCode := tbl.Write(HandleDataClientConfig, []byte{0x01, 0x00}, false); errCode != 0 {
		t.Fatalf("Write(cccd) error = %v", errCode)
	}
	if received != ClientConfigNotify {
		t.Errorf("handler received %#04x, want notify", uint16(received))
	}

	if errCode := tbl.Write(HandleDataClientConfig, []byte{0x01}, false); errCode != wire.AttErrInvalidValueLength {
		t.Errorf("short cccd write = %v, want %v", errCode, wire.AttErrInvalidValueLength)
	}
}

func TestThroughputClientConfigRead(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{
		ClientConfigRead: func() ClientConfig { return ClientConfigNotify },
	})

	value, errCode := tbl.Read(HandleDataClientConfig)
	if errCode != 0 {
		t.Fatalf("Read(cccd) error = %v", errCode)
	}
	if !bytes.Equal(value, []byte{0x01, 0x00}) {
		t.Errorf("cccd value = % x, want 01 00", value)
	}
}

func TestThroughputClientConfigReadDefault(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{})

	value, errCode := tbl.Read(HandleDataClientConfig)
	if errCode != 0 {
		t.Fatalf("Read(cccd) error = %v", errCode)
	}
	if !bytes.Equal(value, []byte{0x00, 0x00}) {
		t.Errorf("default cccd value = % x, want 00 00", value)
	}
}

func TestThroughputDataValueNotReadable(t *testing.T) {
	tbl := NewThroughputTable(ThroughputHandlers{})

	// The data characteristic is notify-only.
	if _, errCode := tbl.Read(HandleData); errCode != wire.AttErrReadNotPermitted {
		t.Errorf("Read(data) = %v, want %v", errCode, wire.AttErrReadNotPermitted)
	}
	if errCode := tbl.Write(HandleData, []byte{0x01}, false); errCode != wire.AttErrWriteNotPermitted {
		t.Errorf("Write(data) = %v, want %v", errCode, wire.AttErrWriteNotPermitted)
	}
}
