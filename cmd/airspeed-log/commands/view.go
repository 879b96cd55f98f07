// Package commands implements the airspeed-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	dir := event.Direction.String()

	// Determine event type label
	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Packet != nil:
		typeLabel = event.Packet.Opcode.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Control != nil:
		typeLabel = "Control"
	case event.Stream != nil:
		typeLabel = "Stream"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, connID, dir, event.Layer, typeLabel)

	// Type-specific details
	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Packet != nil:
		formatPacketDetails(w, event.Packet)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Control != nil:
		formatControlDetails(w, event.Control)
	case event.Stream != nil:
		formatStreamDetails(w, event.Stream)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatFrameDetails writes frame-specific details.
func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Channel: 0x%04x  Size: %d bytes\n", frame.Channel, frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatPacketDetails writes decoded ATT PDU details.
func formatPacketDetails(w io.Writer, pkt *log.PacketEvent) {
	if pkt.Handle != nil {
		fmt.Fprintf(w, "  Handle: 0x%04x\n", *pkt.Handle)
	}
	if pkt.MTU != nil {
		fmt.Fprintf(w, "  MTU: %d\n", *pkt.MTU)
	}
	if pkt.ErrorCode != nil {
		fmt.Fprintf(w, "  Error: %s (0x%02x)\n", pkt.ErrorCode, uint8(*pkt.ErrorCode))
	}
	if pkt.ValueSize > 0 {
		fmt.Fprintf(w, "  Value: %d bytes\n", pkt.ValueSize)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatControlDetails writes control-point command details.
func formatControlDetails(w io.Writer, ctl *log.ControlEvent) {
	fmt.Fprintf(w, "  Opcode: 0x%02x\n", ctl.Opcode)
	if ctl.Enabled != nil {
		fmt.Fprintf(w, "  Streaming: %v\n", *ctl.Enabled)
	}
	if ctl.Ignored {
		fmt.Fprintln(w, "  Ignored")
	}
}

// formatStreamDetails writes stream snapshot details.
func formatStreamDetails(w io.Writer, s *log.StreamEvent) {
	fmt.Fprintf(w, "  Blocks: %d  Bytes: %d\n", s.Blocks, s.Bytes)
	if s.SendFailures > 0 {
		fmt.Fprintf(w, "  Send failures: %d\n", s.SendFailures)
	}
	if s.UnitSize > 0 {
		fmt.Fprintf(w, "  Unit size: %d\n", s.UnitSize)
	}
	if s.Elapsed > 0 {
		fmt.Fprintf(w, "  Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "link":
		return log.LayerLink, nil
	case "att":
		return log.LayerATT, nil
	case "signal":
		return log.LayerSignal, nil
	case "security":
		return log.LayerSecurity, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be link, att, signal, security, or service)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "packet":
		return log.CategoryPacket, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	case "stream":
		return log.CategoryStream, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be packet, control, state, error, or stream)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Apply filter
		if filter.Layer != nil && event.Layer != *filter.Layer {
			continue
		}
		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
