// Package stream produces the peripheral's outgoing data stream.
//
// Three pieces cooperate:
//
//   - Generator: fills buffers with a deterministic byte pattern from
//     a running counter. The pattern survives disconnects, so a
//     capture spanning several connections is a single verifiable
//     sequence.
//   - Transmitter: slices a payload into notification-sized fragments
//     and hands each to the notify primitive. The transmission unit is
//     read once per send pass, so a mid-pass renegotiation affects the
//     next pass, never the current one.
//   - Pump: the perpetual send loop. While the subscription gate is
//     open it generates and sends back to back at the maximum rate the
//     transport accepts; while closed it blocks on the gate's wake
//     channel.
//
// Send failures are best effort: the pump counts them and moves on.
// The peer notices gaps through the byte pattern, not through
// retransmission.
package stream
