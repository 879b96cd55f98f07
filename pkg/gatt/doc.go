// Package gatt models the peripheral's attribute table.
//
// Attributes are addressed by 16-bit handles. Each attribute has a type
// UUID, permissions, and either a static value or read/write hooks. The
// Table resolves ATT reads and writes to attribute semantics and reports
// failures as ATT error codes; PDU dispatch itself lives in
// pkg/peripheral.
//
// The throughput service table (handles, UUIDs, declaration layout) is
// generated from gatt/throughput.yaml by airspeed-svcgen; see
// throughput_gen.go.
//
//go:generate go run ../../cmd/airspeed-svcgen -in ../../gatt/throughput.yaml -out throughput_gen.go
package gatt
