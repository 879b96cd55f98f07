package central

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Report is the outcome of one measurement window.
type Report struct {
	// RunID uniquely identifies this measurement.
	RunID uuid.UUID `json:"runId"`

	// ProbeID is the measuring central's identity.
	ProbeID uuid.UUID `json:"probeId"`

	// DeviceID is the peripheral under test.
	DeviceID uuid.UUID `json:"deviceId"`

	// StartedAt is when the window opened.
	StartedAt time.Time `json:"startedAt"`

	// Duration is the measured time, which can undercut the requested
	// window when the link dies or the context is cancelled.
	Duration time.Duration `json:"duration"`

	// UnitSize is the transmission unit in effect during the window.
	UnitSize uint16 `json:"unitSize"`

	// Notifications received inside the window.
	Notifications uint64 `json:"notifications"`

	// Bytes of notification payload received inside the window.
	Bytes uint64 `json:"bytes"`

	// MinPayload and MaxPayload are the smallest and largest payload
	// sizes seen. Zero when nothing arrived.
	MinPayload int `json:"minPayload"`
	MaxPayload int `json:"maxPayload"`

	// BytesPerSecond and PacketsPerSecond are the measured rates.
	BytesPerSecond   float64 `json:"bytesPerSecond"`
	PacketsPerSecond float64 `json:"packetsPerSecond"`

	// SequenceChecked reports whether payload verification ran;
	// SequenceErrors counts payloads diverging from the fill pattern.
	SequenceChecked bool   `json:"sequenceChecked"`
	SequenceErrors  uint64 `json:"sequenceErrors,omitempty"`
}

// BitsPerSecond returns the payload throughput in bits per second.
func (r *Report) BitsPerSecond() float64 {
	return r.BytesPerSecond * 8
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// String renders a human-readable summary.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Throughput report %s\n", r.RunID)
	fmt.Fprintf(&b, "  device:        %s\n", r.DeviceID)
	fmt.Fprintf(&b, "  window:        %s (started %s)\n", r.Duration.Round(time.Millisecond), r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  unit size:     %d (payload %d)\n", r.UnitSize, int(r.UnitSize)-wire.NotifyOverhead)
	fmt.Fprintf(&b, "  notifications: %d\n", r.Notifications)
	fmt.Fprintf(&b, "  bytes:         %d\n", r.Bytes)
	fmt.Fprintf(&b, "  throughput:    %s (%.0f pkt/s)\n", formatRate(r.BitsPerSecond()), r.PacketsPerSecond)
	if r.SequenceChecked {
		fmt.Fprintf(&b, "  sequence:      %d errors\n", r.SequenceErrors)
	}
	return b.String()
}

// formatRate renders a bit rate with a fitting unit.
func formatRate(bps float64) string {
	switch {
	case bps >= 1e9:
		return fmt.Sprintf("%.2f Gbit/s", bps/1e9)
	case bps >= 1e6:
		return fmt.Sprintf("%.2f Mbit/s", bps/1e6)
	case bps >= 1e3:
		return fmt.Sprintf("%.2f kbit/s", bps/1e3)
	default:
		return fmt.Sprintf("%.0f bit/s", bps)
	}
}
