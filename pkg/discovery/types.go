package discovery

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Service type constants for mDNS.
const (
	// ServiceType is the service type advertised by throughput devices.
	ServiceType = "_airspeed._tcp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record keys.
const (
	// TXTKeyDeviceID carries the device identity UUID.
	TXTKeyDeviceID = "id"

	// TXTKeyProtocolVersion carries the link protocol version.
	TXTKeyProtocolVersion = "pv"

	// TXTKeyServiceUUID carries the UUID of the offered GATT service.
	TXTKeyServiceUUID = "svc"

	// TXTKeyDeviceName carries the display name (optional).
	TXTKeyDeviceName = "nm"
)

// Timing constants.
const (
	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// Announcement describes the service record a device advertises.
type Announcement struct {
	// DeviceID is the device identity UUID (TXT "id").
	DeviceID uuid.UUID

	// DeviceName is the display name, also used as the mDNS instance
	// name (TXT "nm").
	DeviceName string

	// ServiceUUID identifies the GATT service behind the port (TXT "svc").
	ServiceUUID string

	// ProtocolVersion is the link protocol version (TXT "pv").
	ProtocolVersion uint8

	// Port is the transport listen port.
	Port uint16
}

// Validate checks that the announcement carries everything a probe
// needs to dial the device.
func (a *Announcement) Validate() error {
	if a.DeviceID == uuid.Nil {
		return fmt.Errorf("%w: device ID", ErrMissingRequired)
	}
	if a.DeviceName == "" {
		return fmt.Errorf("%w: device name", ErrMissingRequired)
	}
	if a.ServiceUUID == "" {
		return fmt.Errorf("%w: service UUID", ErrMissingRequired)
	}
	if a.Port == 0 {
		return fmt.Errorf("%w: port", ErrMissingRequired)
	}
	return nil
}

// InstanceName returns the mDNS instance name for the announcement,
// truncated to the DNS label limit.
func (a *Announcement) InstanceName() string {
	name := a.DeviceName
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// Device is a throughput device found via mDNS.
type Device struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname (e.g. "bench-7.local").
	Host string

	// Port is the transport port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// DeviceID is the device identity UUID (from TXT "id").
	DeviceID uuid.UUID

	// DeviceName is the display name (from TXT "nm").
	DeviceName string

	// ServiceUUID identifies the offered GATT service (from TXT "svc").
	ServiceUUID string

	// ProtocolVersion is the link protocol version (from TXT "pv").
	ProtocolVersion uint8
}

// Addr returns a dialable "host:port" address, preferring a resolved
// IP over the mDNS hostname.
func (d *Device) Addr() string {
	host := d.Host
	if len(d.Addresses) > 0 {
		host = d.Addresses[0]
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", d.Port))
}
