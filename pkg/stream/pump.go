package stream

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/airspeed-wireless/airspeed-go/pkg/link"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Stats is a snapshot of the pump's cumulative counters.
type Stats struct {
	// Blocks is the number of complete payload buffers sent.
	Blocks uint64

	// Bytes is the number of payload bytes sent, notification
	// overhead excluded.
	Bytes uint64

	// SendFailures counts payloads dropped because a send failed.
	SendFailures uint64
}

// Pump runs the send loop. While the gate is open it fills a buffer
// sized to the current transmission unit and sends it, back to back
// with no pacing. While the gate is closed it sleeps on the gate's
// wake channel.
type Pump struct {
	gate   *link.Gate
	link   LinkState
	gen    *Generator
	tx     *Transmitter
	logger *slog.Logger

	blocks       atomic.Uint64
	bytes        atomic.Uint64
	sendFailures atomic.Uint64
}

// NewPump wires a pump. logger may be nil.
func NewPump(gate *link.Gate, ls LinkState, gen *Generator, tx *Transmitter, logger *slog.Logger) *Pump {
	return &Pump{gate: gate, link: ls, gen: gen, tx: tx, logger: logger}
}

// Run loops until ctx is cancelled. Send failures never stop the
// loop: they are counted, the payload is dropped, and the next
// iteration re-reads the gate and link state. A link loss therefore
// heals itself the moment the disconnect handler closes the gate.
func (p *Pump) Run(ctx context.Context) error {
	buf := make([]byte, wire.MaxMTU-wire.NotifyOverhead)

	for {
		if !p.gate.StreamingActive() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.gate.Wake():
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := int(p.link.UnitSize()) - wire.NotifyOverhead
		chunk := buf[:n]
		p.gen.Fill(chunk)

		if err := p.tx.Send(chunk); err != nil {
			p.sendFailures.Add(1)
			p.debugLog("payload dropped", "size", n, "err", err)
			continue
		}

		p.blocks.Add(1)
		p.bytes.Add(uint64(n))
	}
}

// Stats returns the cumulative counters.
func (p *Pump) Stats() Stats {
	return Stats{
		Blocks:       p.blocks.Load(),
		Bytes:        p.bytes.Load(),
		SendFailures: p.sendFailures.Load(),
	}
}

func (p *Pump) debugLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
