// Package discovery publishes and finds throughput devices via mDNS.
//
// A device advertises one _airspeed._tcp service while it waits for a
// central; the record carries the device identity, protocol version,
// the offered service UUID and a display name in TXT records. The
// probe browses for those records to pick a device to dial.
//
// Advertiser and Browser are interfaces so the device and probe can be
// tested without multicast sockets; MDNSAdvertiser and MDNSBrowser are
// the zeroconf-backed implementations.
package discovery
