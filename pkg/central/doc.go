// Package central implements the probe side of a throughput test.
//
// A Central dials one peripheral, negotiates the transmission unit,
// subscribes to the data characteristic and drives the stream through
// the control point. Inbound notifications are counted continuously;
// Measure wraps a start/stop cycle around a timed window and turns
// the counts into a throughput report.
//
// # Flow
//
//	c := central.New(central.DefaultConfig())
//	if err := c.Connect(ctx, addr); err != nil { ... }
//	defer c.Close()
//
//	if err := c.Subscribe(); err != nil { ... }
//	report, err := c.Measure(ctx, central.MeasureConfig{
//		Duration:       10 * time.Second,
//		VerifySequence: true,
//	})
//
// One ATT request is in flight at a time; notifications interleave
// freely with request traffic and never block it. The payload
// verifier locks onto the device's fill pattern from the first
// notification of a window and checks every byte after it, so a
// dropped or corrupted notification shows up as a sequence error in
// the report.
package central
