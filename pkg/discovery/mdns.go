package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config: config,
	}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising the announcement. An existing
// advertisement is replaced.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, ann *Announcement) error {
	if err := ann.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Withdraw the existing record if any
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	txtStrings := TXTRecordsToStrings(EncodeTXT(ann))

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		ann.InstanceName(),
		ServiceType,
		Domain,
		int(ann.Port),
		txtStrings,
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	return nil
}

// Update replaces the TXT records of the current advertisement.
func (a *MDNSAdvertiser) Update(ann *Announcement) error {
	if err := ann.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}

	a.server.SetText(TXTRecordsToStrings(EncodeTXT(ann)))
	return nil
}

// Stop withdraws the advertisement. Stopping a stopped advertiser is
// a no-op.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// Advertising reports whether a record is currently published.
func (a *MDNSAdvertiser) Advertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{
		config: config,
	}, nil
}

// Browse searches for throughput devices. Devices are aggregated by
// instance name; addresses from multiple interfaces are combined into
// a single entry, and entries disappear when their last interface does.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Device, error) {
	ctx = b.track(ctx)
	out := make(chan *Device)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track devices by instance name, aggregating addresses
		devices := make(map[string]*Device)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				dev := entryToDevice(entry)
				if dev == nil {
					continue
				}

				existing, found := devices[dev.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, dev.Addresses)
				} else {
					devices[dev.InstanceName] = dev
					select {
					case out <- dev:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Drop addresses that came from this interface
				if existing, found := devices[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(devices, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindFirst returns the first device found.
func (b *MDNSBrowser) FindFirst(ctx context.Context) (*Device, error) {
	return b.find(ctx, func(*Device) bool { return true })
}

// FindByName returns the first device whose display name or instance
// name matches.
func (b *MDNSBrowser) FindByName(ctx context.Context, name string) (*Device, error) {
	return b.find(ctx, FilterByName(name))
}

func (b *MDNSBrowser) find(ctx context.Context, match FilterFunc) (*Device, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.browseTimeout())
		defer cancel()
	}

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case dev, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if match(dev) {
				return dev, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// FindAll collects every device seen within the wait window.
func (b *MDNSBrowser) FindAll(ctx context.Context, wait time.Duration) ([]*Device, error) {
	if wait <= 0 {
		wait = b.browseTimeout()
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	var devices []*Device
	for {
		select {
		case dev, ok := <-results:
			if !ok {
				return devices, nil
			}
			devices = append(devices, dev)
		case <-ctx.Done():
			return devices, nil
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// track derives a cancellable child context so Stop can end the browse.
func (b *MDNSBrowser) track(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	return ctx
}

func (b *MDNSBrowser) browseTimeout() time.Duration {
	if b.config.BrowseTimeout > 0 {
		return b.config.BrowseTimeout
	}
	return BrowseTimeout
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToDevice converts a zeroconf entry to a Device. Entries whose
// TXT records don't decode are not throughput devices and are dropped.
func entryToDevice(entry *zeroconf.ServiceEntry) *Device {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	e := &ServiceEntry{
		Instance: entry.Instance,
		Service:  ServiceType,
		Domain:   Domain,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}

	dev, err := e.ToDevice()
	if err != nil {
		return nil
	}
	return dev
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range extra {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses of a zeroconf entry from the
// list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
