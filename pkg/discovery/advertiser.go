package discovery

import (
	"context"
	"time"
)

// Advertiser publishes the device's service record. The device
// advertises while it waits for a central, stops when one connects and
// re-advertises after the link drops.
type Advertiser interface {
	// Advertise starts advertising the announcement. A second call
	// replaces the current record.
	Advertise(ctx context.Context, a *Announcement) error

	// Update replaces the TXT records of the current advertisement.
	Update(a *Announcement) error

	// Stop withdraws the advertisement.
	Stop() error

	// Advertising reports whether a record is currently published.
	Advertising() bool
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       DefaultTTL,
	}
}
