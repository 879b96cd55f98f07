package commands

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.cborlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func notifyEvent(ts time.Time, valueSize int) log.Event {
	handle := uint16(0x0005)
	return log.Event{
		Timestamp:    ts,
		ConnectionID: "conn-1",
		Direction:    log.DirectionOut,
		Layer:        log.LayerATT,
		Category:     log.CategoryPacket,
		Packet: &log.PacketEvent{
			Opcode:    wire.AttOpHandleValueNotification,
			Handle:    &handle,
			ValueSize: valueSize,
		},
	}
}

func TestExportJSONL(t *testing.T) {
	ts := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		notifyEvent(ts, 182),
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Layer:        log.LayerService,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityStream,
				NewState: "STREAMING",
			},
		},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, outPath)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for scanner.Scan() {
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 JSONL lines, got %d", lines)
	}
}

func TestExportCSV(t *testing.T) {
	ts := time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		notifyEvent(ts, 182),
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Direction:    log.DirectionIn,
			Layer:        log.LayerLink,
			Category:     log.CategoryPacket,
			Frame:        &log.FrameEvent{Size: 27, Channel: uint16(wire.ChannelATT)},
		},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(readFile(t, outPath))).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}

	// Header plus two rows
	if len(records) != 3 {
		t.Fatalf("expected 3 CSV records, got %d", len(records))
	}
	if records[0][0] != "timestamp" {
		t.Errorf("expected timestamp header, got %q", records[0][0])
	}
	if records[1][6] != "HANDLE_VALUE_NTF" {
		t.Errorf("expected notification type, got %q", records[1][6])
	}
	if records[2][6] != "frame" {
		t.Errorf("expected frame type, got %q", records[2][6])
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, []log.Event{notifyEvent(time.Now(), 20)})

	if err := RunExport(path, "xml", ""); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
