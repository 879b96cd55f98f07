package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

func TestViewFormatsNotification(t *testing.T) {
	ts := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	path := createTestLogFile(t, []log.Event{notifyEvent(ts, 182)})

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "2026-02-03T09:30:00.000000Z") {
		t.Errorf("expected timestamp in output:\n%s", output)
	}
	if !strings.Contains(output, "ATT") {
		t.Errorf("expected layer in output:\n%s", output)
	}
	if !strings.Contains(output, "Handle: 0x0005") {
		t.Errorf("expected handle in output:\n%s", output)
	}
	if !strings.Contains(output, "Value: 182 bytes") {
		t.Errorf("expected value size in output:\n%s", output)
	}
}

func TestViewFormatsStateChange(t *testing.T) {
	ts := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	events := []log.Event{{
		Timestamp:    ts,
		ConnectionID: "conn-1",
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityStream,
			OldState: "IDLE",
			NewState: "STREAMING",
			Reason:   "control write",
		},
	}}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Entity: STREAM") {
		t.Errorf("expected entity in output:\n%s", output)
	}
	if !strings.Contains(output, "IDLE -> STREAMING") {
		t.Errorf("expected transition in output:\n%s", output)
	}
	if !strings.Contains(output, "Reason: control write") {
		t.Errorf("expected reason in output:\n%s", output)
	}
}

func TestViewFormatsControl(t *testing.T) {
	ts := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	enabled := true
	events := []log.Event{{
		Timestamp:    ts,
		ConnectionID: "conn-1",
		Direction:    log.DirectionIn,
		Layer:        log.LayerATT,
		Category:     log.CategoryControl,
		Control: &log.ControlEvent{
			Opcode:  0x01,
			Enabled: &enabled,
		},
	}}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Opcode: 0x01") {
		t.Errorf("expected opcode in output:\n%s", output)
	}
	if !strings.Contains(output, "Streaming: true") {
		t.Errorf("expected streaming flag in output:\n%s", output)
	}
}

func TestViewFilterByDirection(t *testing.T) {
	ts := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		notifyEvent(ts, 182),
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Direction:    log.DirectionIn,
			Layer:        log.LayerATT,
			Category:     log.CategoryPacket,
			Packet:       &log.PacketEvent{Opcode: wire.AttOpWriteRequest},
		},
	}

	path := createTestLogFile(t, events)

	in := log.DirectionIn
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Direction: &in}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "HANDLE_VALUE_NTF") {
		t.Errorf("outbound notification should be filtered out:\n%s", output)
	}
	if !strings.Contains(output, "WRITE_REQ") {
		t.Errorf("expected inbound write request in output:\n%s", output)
	}
}

func TestParseLayerFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Layer
		wantErr bool
	}{
		{"link", log.LayerLink, false},
		{"ATT", log.LayerATT, false},
		{"Signal", log.LayerSignal, false},
		{"security", log.LayerSecurity, false},
		{"service", log.LayerService, false},
		{"wire", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLayerFlag(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLayerFlag(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLayerFlag(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLayerFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
