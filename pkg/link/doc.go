// Package link tracks the state of the single attached central.
//
// Two small components share the job:
//
//   - Tracker: owns the connection handle and the negotiated
//     transmission unit size. It enforces the single-connection policy
//     (a second central is refused while one is attached) and resets
//     the unit size to the protocol default on every new attachment.
//   - Gate: two independent flags that must BOTH be set before the
//     stream pump emits data. The central raises one by enabling
//     notifications on the data characteristic and the other by
//     writing a start command to the control point.
//
// # Synchronization
//
// Each scalar is synchronized on its own: the unit size is an atomic,
// the gate flags are atomics, the handle sits behind a small mutex.
// There is deliberately no compound lock across them. Readers may see
// a combination that is stale by one update; the stream pump tolerates
// that, because a send against a just-dropped link fails harmlessly
// and the next loop iteration observes the new state.
//
// # Waking the pump
//
// The Gate carries a buffered wake channel. Every flag transition
// signals it, so an idle pump blocks on Wake() instead of polling.
package link
