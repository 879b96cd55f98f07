package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
)

func TestStatsCountsByLayer(t *testing.T) {
	ts := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerLink, Category: log.CategoryPacket},
		{Timestamp: ts, Layer: log.LayerLink, Category: log.CategoryPacket},
		{Timestamp: ts, Layer: log.LayerATT, Category: log.CategoryPacket},
		{Timestamp: ts, Layer: log.LayerService, Category: log.CategoryState},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()

	// Check layer counts
	if !strings.Contains(output, "LINK:") {
		t.Error("expected LINK layer in output")
	}
	if !strings.Contains(output, "ATT:") {
		t.Error("expected ATT layer in output")
	}
	if !strings.Contains(output, "SERVICE:") {
		t.Error("expected SERVICE layer in output")
	}
	if !strings.Contains(output, "Total Events: 4") {
		t.Error("expected total event count in output")
	}
}

func TestStatsCountsErrors(t *testing.T) {
	ts := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryPacket},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "boom"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Errors: 1") {
		t.Errorf("expected error count in output:\n%s", buf.String())
	}
}

func TestStatsNotificationThroughput(t *testing.T) {
	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		notifyEvent(base, 182),
		notifyEvent(base.Add(500*time.Millisecond), 182),
		notifyEvent(base.Add(time.Second), 182),
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Notifications: 3 (546 payload bytes)") {
		t.Errorf("expected notification summary in output:\n%s", output)
	}
	// 546 bytes over 1 second
	if !strings.Contains(output, "546 B/s") {
		t.Errorf("expected throughput rate in output:\n%s", output)
	}
}

func TestStatsFrameBytesByDirection(t *testing.T) {
	ts := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Direction: log.DirectionOut, Layer: log.LayerLink,
			Category: log.CategoryPacket, Frame: &log.FrameEvent{Size: 100}},
		{Timestamp: ts, Direction: log.DirectionOut, Layer: log.LayerLink,
			Category: log.CategoryPacket, Frame: &log.FrameEvent{Size: 50}},
		{Timestamp: ts, Direction: log.DirectionIn, Layer: log.LayerLink,
			Category: log.CategoryPacket, Frame: &log.FrameEvent{Size: 7}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "(150 frame bytes)") {
		t.Errorf("expected outbound frame bytes in output:\n%s", output)
	}
	if !strings.Contains(output, "(7 frame bytes)") {
		t.Errorf("expected inbound frame bytes in output:\n%s", output)
	}
}

func TestStatsTracksConnections(t *testing.T) {
	ts := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "aaaabbbb-1111", DeviceID: "dev-1"},
		{Timestamp: ts.Add(time.Second), ConnectionID: "aaaabbbb-1111"},
		{Timestamp: ts.Add(2 * time.Second), ConnectionID: "ccccdddd-2222"},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Connections: 2") {
		t.Errorf("expected connection count in output:\n%s", output)
	}
	if !strings.Contains(output, "Device: dev-1") {
		t.Errorf("expected device ID in output:\n%s", output)
	}
}
