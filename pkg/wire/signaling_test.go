package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestConnParamUpdateRequestRoundTrip(t *testing.T) {
	req := ConnParamUpdateRequest{
		Identifier: 7,
		Params: ConnParams{
			IntervalMin: 24, // 30 ms
			IntervalMax: 40, // 50 ms
			Latency:     0,
			Timeout:     400, // 4 s
		},
	}

	data := req.Marshal()
	decoded, err := ParseSignal(data)
	if err != nil {
		t.Fatalf("ParseSignal failed: %v", err)
	}

	got, ok := decoded.(ConnParamUpdateRequest)
	if !ok {
		t.Fatalf("decoded type = %T, want ConnParamUpdateRequest", decoded)
	}
	if got.Identifier != 7 {
		t.Errorf("Identifier = %d, want 7", got.Identifier)
	}
	if got.Params != req.Params {
		t.Errorf("Params = %+v, want %+v", got.Params, req.Params)
	}
}

func TestConnParamUpdateResponseRoundTrip(t *testing.T) {
	rsp := ConnParamUpdateResponse{Identifier: 7, Result: ConnParamsAccepted}

	data := rsp.Marshal()
	decoded, err := ParseSignal(data)
	if err != nil {
		t.Fatalf("ParseSignal failed: %v", err)
	}

	got, ok := decoded.(ConnParamUpdateResponse)
	if !ok {
		t.Fatalf("decoded type = %T, want ConnParamUpdateResponse", decoded)
	}
	if got.Identifier != 7 {
		t.Errorf("Identifier = %d, want 7", got.Identifier)
	}
	if got.Result != ConnParamsAccepted {
		t.Errorf("Result = %d, want %d", got.Result, ConnParamsAccepted)
	}
}

func TestConnParamUpdateRequestLayout(t *testing.T) {
	req := ConnParamUpdateRequest{
		Identifier: 1,
		Params:     ConnParams{IntervalMin: 6, IntervalMax: 12, Latency: 0, Timeout: 100},
	}

	want := []byte{
		0x12, 0x01, 0x08, 0x00, // code, id, len=8
		0x06, 0x00, 0x0C, 0x00, // intervals
		0x00, 0x00, 0x64, 0x00, // latency, timeout
	}
	if got := req.Marshal(); !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
}

func TestConnParamsDurations(t *testing.T) {
	p := ConnParams{IntervalMin: 24, IntervalMax: 40, Timeout: 400}

	if got := p.IntervalMinDuration(); got != 30*time.Millisecond {
		t.Errorf("IntervalMinDuration = %v, want 30ms", got)
	}
	if got := p.IntervalMaxDuration(); got != 50*time.Millisecond {
		t.Errorf("IntervalMaxDuration = %v, want 50ms", got)
	}
	if got := p.TimeoutDuration(); got != 4*time.Second {
		t.Errorf("TimeoutDuration = %v, want 4s", got)
	}
}

func TestParseSignalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrSignalTooShort},
		{"header only truncated", []byte{0x12, 0x01}, ErrSignalTooShort},
		{"length mismatch", []byte{0x12, 0x01, 0x08, 0x00, 0x01}, ErrLengthMismatch},
		{"unknown code", []byte{0x7E, 0x01, 0x00, 0x00}, ErrUnknownSignalCode},
		{"request payload too small", []byte{0x12, 0x01, 0x02, 0x00, 0xAA, 0xBB}, ErrSignalTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSignal(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseSignal(%x) err = %v, want %v", tt.data, err, tt.want)
			}
		})
	}
}

func TestSignalCodeString(t *testing.T) {
	tests := []struct {
		code SignalCode
		want string
	}{
		{SignalEchoRequest, "ECHO_REQ"},
		{SignalEchoResponse, "ECHO_RSP"},
		{SignalConnParamUpdateRequest, "CONN_PARAM_UPDATE_REQ"},
		{SignalConnParamUpdateResponse, "CONN_PARAM_UPDATE_RSP"},
		{SignalCode(0x7E), "UNKNOWN(0x7E)"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("SignalCode(%#02x).String() = %q, want %q", uint8(tt.code), got, tt.want)
		}
	}
}

func TestEchoRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pdu  SignalPDU
	}{
		{"request with data", EchoRequest{Identifier: 0x07, Data: []byte{0xDE, 0xAD}}},
		{"request empty", EchoRequest{Identifier: 0x08}},
		{"response with data", EchoResponse{Identifier: 0x07, Data: []byte{0xDE, 0xAD}}},
		{"response empty", EchoResponse{Identifier: 0x09}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignal(tt.pdu.Marshal())
			if err != nil {
				t.Fatalf("ParseSignal error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.pdu) {
				t.Errorf("round trip = %#v, want %#v", got, tt.pdu)
			}
		})
	}
}

func TestEchoRequestLayout(t *testing.T) {
	got := EchoRequest{Identifier: 0x03, Data: []byte{0xAB}}.Marshal()
	want := []byte{0x08, 0x03, 0x01, 0x00, 0xAB}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = % x, want % x", got, want)
	}
}
