package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Uint64("channel", uint64(event.Frame.Channel)),
		)
		if event.Frame.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}
	case event.Packet != nil:
		attrs = append(attrs, slog.String("opcode", event.Packet.Opcode.String()))
		if event.Packet.Handle != nil {
			attrs = append(attrs, slog.Uint64("handle", uint64(*event.Packet.Handle)))
		}
		if event.Packet.MTU != nil {
			attrs = append(attrs, slog.Uint64("mtu", uint64(*event.Packet.MTU)))
		}
		if event.Packet.ErrorCode != nil {
			attrs = append(attrs, slog.String("att_error", event.Packet.ErrorCode.String()))
		}
		if event.Packet.ValueSize > 0 {
			attrs = append(attrs, slog.Int("value_size", event.Packet.ValueSize))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Control != nil:
		attrs = append(attrs, slog.Uint64("ctrl_opcode", uint64(event.Control.Opcode)))
		if event.Control.Enabled != nil {
			attrs = append(attrs, slog.Bool("ctrl_enabled", *event.Control.Enabled))
		}
		if event.Control.Ignored {
			attrs = append(attrs, slog.Bool("ctrl_ignored", true))
		}
	case event.Stream != nil:
		attrs = append(attrs,
			slog.Uint64("blocks", event.Stream.Blocks),
			slog.Uint64("bytes", event.Stream.Bytes),
			slog.Uint64("send_failures", event.Stream.SendFailures),
			slog.Uint64("unit_size", uint64(event.Stream.UnitSize)),
		)
		if event.Stream.Elapsed > 0 {
			attrs = append(attrs, slog.Duration("elapsed", event.Stream.Elapsed))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
