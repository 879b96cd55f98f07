package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// newCaptureSlog returns an slog.Logger writing JSON lines to buf at debug level.
func newCaptureSlog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSlogAdapterFrameEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newCaptureSlog(&buf))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-1",
		Direction:    DirectionOut,
		Layer:        LayerLink,
		Category:     CategoryPacket,
		Frame:        &FrameEvent{Size: 42, Channel: 0x0004},
	})

	out := buf.String()
	for _, want := range []string{`"conn_id":"conn-1"`, `"direction":"OUT"`, `"layer":"LINK"`, `"frame_size":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSlogAdapterPacketEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newCaptureSlog(&buf))

	handle := uint16(0x0005)
	adapter.Log(Event{
		Timestamp: time.Now(),
		Direction: DirectionOut,
		Layer:     LayerATT,
		Category:  CategoryPacket,
		Packet:    &PacketEvent{Opcode: wire.AttOpHandleValueNotification, Handle: &handle, ValueSize: 182},
	})

	out := buf.String()
	for _, want := range []string{`"layer":"ATT"`, `"handle":5`, `"value_size":182`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSlogAdapterStateChange(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newCaptureSlog(&buf))

	adapter.Log(Event{
		Timestamp: time.Now(),
		Layer:     LayerService,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityStream,
			OldState: "idle",
			NewState: "streaming",
		},
	})

	out := buf.String()
	for _, want := range []string{`"entity":"STREAM"`, `"old_state":"idle"`, `"new_state":"streaming"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSlogAdapterControlEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newCaptureSlog(&buf))

	enabled := false
	adapter.Log(Event{
		Timestamp: time.Now(),
		Layer:     LayerService,
		Category:  CategoryControl,
		Control:   &ControlEvent{Opcode: 0x01, Enabled: &enabled},
	})

	out := buf.String()
	for _, want := range []string{`"ctrl_opcode":1`, `"ctrl_enabled":false`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSlogAdapterErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newCaptureSlog(&buf))

	adapter.Log(Event{
		Timestamp: time.Now(),
		Layer:     LayerLink,
		Category:  CategoryError,
		Error:     &ErrorEventData{Layer: LayerLink, Message: "send failed", Context: "notify"},
	})

	out := buf.String()
	for _, want := range []string{`"error_layer":"LINK"`, `"error_msg":"send failed"`, `"error_context":"notify"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSlogAdapterInterfaceSatisfaction(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
