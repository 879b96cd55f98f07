package central

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/stream"
)

// ErrMeasureRunning indicates overlapping measurement windows.
var ErrMeasureRunning = errors.New("central: measurement already running")

// MeasureConfig configures one measurement window.
type MeasureConfig struct {
	// Duration is the length of the window. Required.
	Duration time.Duration

	// VerifySequence checks every payload byte against the device's
	// fill pattern and counts divergences.
	VerifySequence bool

	// KeepStreaming leaves the stream running when the window ends
	// instead of sending the stop command.
	KeepStreaming bool
}

// measureSession accumulates notifications for one window. observe
// runs on the read loop, so the counters are atomics and the verifier
// state is guarded.
type measureSession struct {
	notifications atomic.Uint64
	bytes         atomic.Uint64
	minPayload    atomic.Int64
	maxPayload    atomic.Int64

	verify     bool
	verifyMu   sync.Mutex
	shadow     *stream.Generator
	seqErrors  atomic.Uint64
	seqSamples atomic.Uint64
}

func newMeasureSession(verify bool) *measureSession {
	s := &measureSession{verify: verify}
	s.minPayload.Store(-1)
	return s
}

func (s *measureSession) observe(value []byte) {
	s.notifications.Add(1)
	s.bytes.Add(uint64(len(value)))

	size := int64(len(value))
	for {
		min := s.minPayload.Load()
		if min != -1 && min <= size {
			break
		}
		if s.minPayload.CompareAndSwap(min, size) {
			break
		}
	}
	for {
		max := s.maxPayload.Load()
		if max >= size {
			break
		}
		if s.maxPayload.CompareAndSwap(max, size) {
			break
		}
	}

	if s.verify {
		s.checkSequence(value)
	}
}

// checkSequence locks onto the fill pattern from the first payload
// and replays it for every one after. A divergence counts one error
// and re-locks from the diverging payload, so one lost notification
// does not poison the rest of the window.
func (s *measureSession) checkSequence(value []byte) {
	s.verifyMu.Lock()
	defer s.verifyMu.Unlock()

	s.seqSamples.Add(1)

	if s.shadow == nil {
		start, ok := stream.FindCounter(value)
		if !ok {
			s.seqErrors.Add(1)
			return
		}
		s.shadow = stream.NewGeneratorAt(start)
		s.shadow.Fill(make([]byte, len(value)))
		return
	}

	want := make([]byte, len(value))
	s.shadow.Fill(want)
	if !bytes.Equal(value, want) {
		s.seqErrors.Add(1)
		if start, ok := stream.FindCounter(value); ok {
			s.shadow = stream.NewGeneratorAt(start)
			s.shadow.Fill(make([]byte, len(value)))
		} else {
			s.shadow = nil
		}
	}
}

// Measure drives one throughput measurement: start the stream, count
// notifications for the window, stop the stream, report. The central
// must be connected and subscribed. A cancelled context ends the
// window early; the report covers the time actually measured.
func (c *Central) Measure(ctx context.Context, cfg MeasureConfig) (*Report, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	if !c.Subscribed() {
		return nil, ErrNotSubscribed
	}

	session := newMeasureSession(cfg.VerifySequence)
	if !c.session.CompareAndSwap(nil, session) {
		return nil, ErrMeasureRunning
	}
	defer c.session.Store(nil)

	if err := c.StartStream(); err != nil {
		return nil, err
	}

	started := time.Now()
	timer := time.NewTimer(cfg.Duration)
	defer timer.Stop()

	var windowErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		windowErr = ctx.Err()
	case <-c.downChan():
		windowErr = ErrNotConnected
	}
	elapsed := time.Since(started)

	if !cfg.KeepStreaming && c.Connected() {
		if err := c.StopStream(); err != nil && windowErr == nil {
			windowErr = err
		}
	}

	report := c.buildReport(session, started, elapsed)
	if windowErr != nil && !errors.Is(windowErr, context.Canceled) {
		return report, windowErr
	}
	return report, nil
}

func (c *Central) buildReport(s *measureSession, started time.Time, elapsed time.Duration) *Report {
	r := &Report{
		RunID:         uuid.New(),
		ProbeID:       c.config.Identity,
		DeviceID:      c.DeviceID(),
		StartedAt:     started,
		Duration:      elapsed,
		UnitSize:      c.MTU(),
		Notifications: s.notifications.Load(),
		Bytes:         s.bytes.Load(),
	}
	if min := s.minPayload.Load(); min >= 0 {
		r.MinPayload = int(min)
	}
	r.MaxPayload = int(s.maxPayload.Load())

	if s.verify {
		r.SequenceChecked = true
		r.SequenceErrors = s.seqErrors.Load()
	}

	if secs := elapsed.Seconds(); secs > 0 {
		r.BytesPerSecond = float64(r.Bytes) / secs
		r.PacketsPerSecond = float64(r.Notifications) / secs
	}
	return r
}
