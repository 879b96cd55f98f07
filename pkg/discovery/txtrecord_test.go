package discovery

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestTXTRoundtrip(t *testing.T) {
	ann := &Announcement{
		DeviceID:        uuid.MustParse("f81d4fae-7dec-11d0-a765-00a0c91e6bf6"),
		DeviceName:      "bench-7",
		ServiceUUID:     "f4ec3641-de4b-45a7-f84a-bd5464e4b31f",
		ProtocolVersion: 1,
		Port:            7650,
	}

	txt := EncodeTXT(ann)

	if txt[TXTKeyDeviceID] != "f81d4fae-7dec-11d0-a765-00a0c91e6bf6" {
		t.Errorf("id = %q, want the device UUID", txt[TXTKeyDeviceID])
	}
	if txt[TXTKeyProtocolVersion] != "1" {
		t.Errorf("pv = %q, want \"1\"", txt[TXTKeyProtocolVersion])
	}
	if txt[TXTKeyServiceUUID] != ann.ServiceUUID {
		t.Errorf("svc = %q, want %q", txt[TXTKeyServiceUUID], ann.ServiceUUID)
	}
	if txt[TXTKeyDeviceName] != "bench-7" {
		t.Errorf("nm = %q, want \"bench-7\"", txt[TXTKeyDeviceName])
	}

	decoded, err := DecodeTXT(txt)
	if err != nil {
		t.Fatalf("DecodeTXT() error = %v", err)
	}

	if decoded.DeviceID != ann.DeviceID {
		t.Errorf("DeviceID = %v, want %v", decoded.DeviceID, ann.DeviceID)
	}
	if decoded.DeviceName != ann.DeviceName {
		t.Errorf("DeviceName = %q, want %q", decoded.DeviceName, ann.DeviceName)
	}
	if decoded.ServiceUUID != ann.ServiceUUID {
		t.Errorf("ServiceUUID = %q, want %q", decoded.ServiceUUID, ann.ServiceUUID)
	}
	if decoded.ProtocolVersion != ann.ProtocolVersion {
		t.Errorf("ProtocolVersion = %d, want %d", decoded.ProtocolVersion, ann.ProtocolVersion)
	}
}

func TestEncodeTXTWithoutName(t *testing.T) {
	ann := &Announcement{
		DeviceID:        uuid.New(),
		ServiceUUID:     "f4ec3641-de4b-45a7-f84a-bd5464e4b31f",
		ProtocolVersion: 1,
		Port:            7650,
	}

	txt := EncodeTXT(ann)

	if _, ok := txt[TXTKeyDeviceName]; ok {
		t.Error("nm should not be present when DeviceName is empty")
	}

	decoded, err := DecodeTXT(txt)
	if err != nil {
		t.Fatalf("DecodeTXT() error = %v", err)
	}
	if decoded.DeviceName != "" {
		t.Errorf("DeviceName = %q, want empty string", decoded.DeviceName)
	}
}

func TestDecodeTXTMissingRequired(t *testing.T) {
	valid := TXTRecordMap{
		"id":  "f81d4fae-7dec-11d0-a765-00a0c91e6bf6",
		"pv":  "1",
		"svc": "f4ec3641-de4b-45a7-f84a-bd5464e4b31f",
	}

	tests := []struct {
		name string
		drop string
	}{
		{"MissingID", "id"},
		{"MissingPV", "pv"},
		{"MissingSVC", "svc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txt := make(TXTRecordMap)
			for k, v := range valid {
				if k != tt.drop {
					txt[k] = v
				}
			}
			if _, err := DecodeTXT(txt); !errors.Is(err, ErrMissingRequired) {
				t.Errorf("DecodeTXT() error = %v, want ErrMissingRequired", err)
			}
		})
	}
}

func TestDecodeTXTInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
	}{
		{"BadUUID", TXTRecordMap{"id": "not-a-uuid", "pv": "1", "svc": "x"}},
		{"NonNumericPV", TXTRecordMap{"id": "f81d4fae-7dec-11d0-a765-00a0c91e6bf6", "pv": "abc", "svc": "x"}},
		{"PVOutOfRange", TXTRecordMap{"id": "f81d4fae-7dec-11d0-a765-00a0c91e6bf6", "pv": "300", "svc": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTXT(tt.txt); !errors.Is(err, ErrInvalidTXTRecord) {
				t.Errorf("DecodeTXT() error = %v, want ErrInvalidTXTRecord", err)
			}
		})
	}
}

func TestTXTStringsRoundtrip(t *testing.T) {
	txt := TXTRecordMap{
		"id": "abc",
		"pv": "1",
		"nm": "Living Room Device",
	}

	strs := TXTRecordsToStrings(txt)
	if len(strs) != 3 {
		t.Fatalf("len = %d, want 3", len(strs))
	}
	for _, s := range strs {
		if !strings.Contains(s, "=") {
			t.Errorf("record %q missing separator", s)
		}
	}

	back := StringsToTXTRecords(strs)
	for k, v := range txt {
		if back[k] != v {
			t.Errorf("key %q = %q, want %q", k, back[k], v)
		}
	}
}

func TestStringsToTXTRecordsFlagKey(t *testing.T) {
	txt := StringsToTXTRecords([]string{"flag", "k=v", ""})

	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q (present %v), want empty value", v, ok)
	}
	if txt["k"] != "v" {
		t.Errorf("k = %q, want \"v\"", txt["k"])
	}
	if len(txt) != 2 {
		t.Errorf("len = %d, want 2", len(txt))
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("bench-7"); err != nil {
		t.Errorf("ValidateInstanceName(\"bench-7\") = %v, want nil", err)
	}
	if err := ValidateInstanceName(""); err == nil {
		t.Error("empty instance name accepted")
	}
	if err := ValidateInstanceName(strings.Repeat("x", 64)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("64-char name error = %v, want ErrInstanceNameTooLong", err)
	}
	if err := ValidateInstanceName(strings.Repeat("x", 63)); err != nil {
		t.Errorf("63-char name error = %v, want nil", err)
	}
}
