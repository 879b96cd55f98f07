package discovery

import (
	"context"
	"time"
)

// Browser finds advertised throughput devices.
type Browser interface {
	// Browse searches for devices. The channel is closed when the
	// context is cancelled. Each device is emitted once; addresses
	// seen on multiple interfaces are merged into the first entry.
	Browse(ctx context.Context) (<-chan *Device, error)

	// FindFirst returns the first device found, or ErrNotFound when
	// the browse window closes empty.
	FindFirst(ctx context.Context) (*Device, error)

	// FindByName returns the first device whose display name or
	// instance name matches.
	FindByName(ctx context.Context, name string) (*Device, error)

	// FindAll collects every device seen within the wait window.
	FindAll(ctx context.Context, wait time.Duration) ([]*Device, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds FindFirst and FindByName when the caller's
	// context has no deadline. Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(*Device) bool

// FilterByName returns a filter matching devices by display name or
// instance name.
func FilterByName(name string) FilterFunc {
	return func(d *Device) bool {
		return d.DeviceName == name || d.InstanceName == name
	}
}

// FilterByServiceUUID returns a filter matching devices that offer the
// given GATT service.
func FilterByServiceUUID(serviceUUID string) FilterFunc {
	return func(d *Device) bool {
		return d.ServiceUUID == serviceUUID
	}
}

// ServiceEntry holds raw mDNS service entry data, decoupled from the
// mDNS library's own entry type. This is a helper for Browser
// implementations.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToDevice converts a ServiceEntry to a Device. Entries whose TXT
// records don't decode are not throughput devices.
func (e *ServiceEntry) ToDevice() (*Device, error) {
	txt := StringsToTXTRecords(e.Text)
	ann, err := DecodeTXT(txt)
	if err != nil {
		return nil, err
	}

	return &Device{
		InstanceName:    e.Instance,
		Host:            e.Host,
		Port:            e.Port,
		Addresses:       e.Addrs,
		DeviceID:        ann.DeviceID,
		DeviceName:      ann.DeviceName,
		ServiceUUID:     ann.ServiceUUID,
		ProtocolVersion: ann.ProtocolVersion,
	}, nil
}
