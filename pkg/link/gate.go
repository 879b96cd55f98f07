package link

import "sync/atomic"

// Gate holds the two conditions that must both hold before the stream
// pump emits data: the central has enabled notifications on the data
// characteristic, and it has requested streaming through the control
// point. The flags are set by independent writers and read by the
// pump; each is its own atomic.
type Gate struct {
	notificationsEnabled atomic.Bool
	streamingRequested   atomic.Bool

	// wake is buffered so a signal never blocks a setter. A single
	// pending token is enough; the pump re-checks the flags after
	// every wakeup.
	wake chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	return &Gate{wake: make(chan struct{}, 1)}
}

// SetNotificationsEnabled records the CCCD state and wakes the pump.
func (g *Gate) SetNotificationsEnabled(v bool) {
	g.notificationsEnabled.Store(v)
	g.signal()
}

// SetStreamingRequested records the control point state and wakes the
// pump.
func (g *Gate) SetStreamingRequested(v bool) {
	g.streamingRequested.Store(v)
	g.signal()
}

// NotificationsEnabled reports the CCCD flag.
func (g *Gate) NotificationsEnabled() bool {
	return g.notificationsEnabled.Load()
}

// StreamingRequested reports the control point flag.
func (g *Gate) StreamingRequested() bool {
	return g.streamingRequested.Load()
}

// StreamingActive reports whether both flags hold. The two loads are
// not a snapshot; a transition between them surfaces on the next
// check.
func (g *Gate) StreamingActive() bool {
	return g.notificationsEnabled.Load() && g.streamingRequested.Load()
}

// Reset clears both flags. Used on disconnect so a new central starts
// from a closed gate.
func (g *Gate) Reset() {
	g.notificationsEnabled.Store(false)
	g.streamingRequested.Store(false)
	g.signal()
}

// Wake returns the channel signalled on every flag transition. The
// pump blocks on it while the gate is closed.
func (g *Gate) Wake() <-chan struct{} {
	return g.wake
}

func (g *Gate) signal() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}
