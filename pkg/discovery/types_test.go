package discovery

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAnnouncementValidate(t *testing.T) {
	valid := Announcement{
		DeviceID:        uuid.New(),
		DeviceName:      "bench-7",
		ServiceUUID:     "f4ec3641-de4b-45a7-f84a-bd5464e4b31f",
		ProtocolVersion: 1,
		Port:            7650,
	}

	tests := []struct {
		name    string
		mutate  func(*Announcement)
		wantErr bool
	}{
		{"Valid", func(*Announcement) {}, false},
		{"NilDeviceID", func(a *Announcement) { a.DeviceID = uuid.Nil }, true},
		{"EmptyName", func(a *Announcement) { a.DeviceName = "" }, true},
		{"EmptyServiceUUID", func(a *Announcement) { a.ServiceUUID = "" }, true},
		{"ZeroPort", func(a *Announcement) { a.Port = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrMissingRequired) {
				t.Errorf("Validate() error = %v, want ErrMissingRequired", err)
			}
		})
	}
}

func TestAnnouncementInstanceName(t *testing.T) {
	a := Announcement{DeviceName: "bench-7"}
	if got := a.InstanceName(); got != "bench-7" {
		t.Errorf("InstanceName() = %q, want \"bench-7\"", got)
	}

	a.DeviceName = strings.Repeat("n", 80)
	if got := a.InstanceName(); len(got) != MaxInstanceNameLen {
		t.Errorf("InstanceName() length = %d, want %d", len(got), MaxInstanceNameLen)
	}
}

func TestDeviceAddr(t *testing.T) {
	d := Device{
		Host:      "bench-7.local",
		Port:      7650,
		Addresses: []string{"192.168.1.42", "fe80::1"},
	}
	if got := d.Addr(); got != "192.168.1.42:7650" {
		t.Errorf("Addr() = %q, want \"192.168.1.42:7650\"", got)
	}

	// No resolved addresses: fall back to the hostname.
	d.Addresses = nil
	if got := d.Addr(); got != "bench-7.local:7650" {
		t.Errorf("Addr() = %q, want \"bench-7.local:7650\"", got)
	}

	// IPv6 addresses must be bracketed for dialing.
	d.Addresses = []string{"fe80::1"}
	if got := d.Addr(); got != "[fe80::1]:7650" {
		t.Errorf("Addr() = %q, want \"[fe80::1]:7650\"", got)
	}
}

func TestServiceEntryToDevice(t *testing.T) {
	id := uuid.New()
	entry := ServiceEntry{
		Instance: "bench-7",
		Service:  ServiceType,
		Domain:   Domain,
		Host:     "bench-7.local",
		Port:     7650,
		Text: []string{
			"id=" + id.String(),
			"pv=1",
			"svc=f4ec3641-de4b-45a7-f84a-bd5464e4b31f",
			"nm=bench-7",
		},
		Addrs: []string{"192.168.1.42"},
	}

	dev, err := entry.ToDevice()
	if err != nil {
		t.Fatalf("ToDevice() error = %v", err)
	}

	if dev.DeviceID != id {
		t.Errorf("DeviceID = %v, want %v", dev.DeviceID, id)
	}
	if dev.InstanceName != "bench-7" {
		t.Errorf("InstanceName = %q, want \"bench-7\"", dev.InstanceName)
	}
	if dev.Port != 7650 {
		t.Errorf("Port = %d, want 7650", dev.Port)
	}
	if dev.ProtocolVersion != 1 {
		t.Errorf("ProtocolVersion = %d, want 1", dev.ProtocolVersion)
	}
	if len(dev.Addresses) != 1 || dev.Addresses[0] != "192.168.1.42" {
		t.Errorf("Addresses = %v, want [192.168.1.42]", dev.Addresses)
	}
}

func TestServiceEntryToDeviceForeignService(t *testing.T) {
	// A record without our TXT keys is some other service.
	entry := ServiceEntry{
		Instance: "printer",
		Text:     []string{"ty=LaserJet"},
	}
	if _, err := entry.ToDevice(); err == nil {
		t.Error("ToDevice() accepted a foreign service entry")
	}
}

func TestFilterByName(t *testing.T) {
	dev := &Device{InstanceName: "bench-7", DeviceName: "Living Room"}

	if !FilterByName("bench-7")(dev) {
		t.Error("instance name match failed")
	}
	if !FilterByName("Living Room")(dev) {
		t.Error("display name match failed")
	}
	if FilterByName("other")(dev) {
		t.Error("mismatched name accepted")
	}
}

func TestFilterByServiceUUID(t *testing.T) {
	dev := &Device{ServiceUUID: "f4ec3641-de4b-45a7-f84a-bd5464e4b31f"}

	if !FilterByServiceUUID("f4ec3641-de4b-45a7-f84a-bd5464e4b31f")(dev) {
		t.Error("service UUID match failed")
	}
	if FilterByServiceUUID("0000180f-0000-1000-8000-00805f9b34fb")(dev) {
		t.Error("mismatched service UUID accepted")
	}
}
