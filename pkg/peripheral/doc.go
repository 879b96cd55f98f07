// Package peripheral runs the device side of the throughput test
// service: one transport server, one GATT table, and one stream pump,
// wired so that a single central can connect, subscribe to the data
// characteristic, and drive the stream through the control point.
//
// The peripheral advertises over mDNS while no central is attached,
// stops advertising for the duration of a link, and re-advertises the
// moment the link drops. A second central arriving while one is
// attached is refused during the hello exchange and the existing link
// keeps streaming.
package peripheral
