package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Supervision constants.
const (
	// DefaultSupervisionTimeout is the link supervision timeout before
	// any connection parameter update.
	DefaultSupervisionTimeout = 4 * time.Second

	// supervisionSlices is how many probe intervals fit in one
	// supervision timeout. A link must miss several probes in a row
	// before it is declared lost.
	supervisionSlices = 4
)

// Supervisor watches link liveness. Any inbound frame proves the peer
// alive; a link quiet for a probe interval is probed with an echo
// request. With a timeout callback armed (the peripheral side) a link
// quiet for the full supervision timeout is declared lost; without
// one (the central side) the supervisor only probes, which keeps the
// peer's watchdog fed even while the local application is idle.
type Supervisor struct {
	conn      *Conn
	onTimeout func()

	mu       sync.Mutex
	timeout  time.Duration
	running  bool
	stopCh   chan struct{}
	updateCh chan struct{}

	echoID atomic.Uint32
}

// NewSupervisor creates a supervisor for the connection. A zero
// timeout selects the default; a nil onTimeout selects probe-only
// mode.
func NewSupervisor(conn *Conn, timeout time.Duration, onTimeout func()) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultSupervisionTimeout
	}
	return &Supervisor{
		conn:      conn,
		onTimeout: onTimeout,
		timeout:   timeout,
		stopCh:    make(chan struct{}),
		updateCh:  make(chan struct{}, 1),
	}
}

// Start begins supervision and attaches the supervisor to its
// connection so timeout updates and Close reach it.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.conn.attachSupervisor(s)
	go s.loop(ctx)
}

// Stop stops supervision.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// IsRunning returns true while the supervision loop is active.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Timeout returns the supervision timeout in effect.
func (s *Supervisor) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// UpdateTimeout applies a new supervision timeout. Takes effect on
// the next probe interval.
func (s *Supervisor) UpdateTimeout(d time.Duration) {
	if d <= 0 {
		return
	}

	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()

	select {
	case s.updateCh <- struct{}{}:
	default:
	}
}

// loop is the supervision loop.
func (s *Supervisor) loop(ctx context.Context) {
	s.mu.Lock()
	stopCh := s.stopCh
	s.mu.Unlock()

	ticker := time.NewTicker(s.Timeout() / supervisionSlices)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-s.updateCh:
			ticker.Reset(s.Timeout() / supervisionSlices)
		case <-ticker.C:
			if s.check() {
				return
			}
		}
	}
}

// check inspects link activity, probing or declaring the link lost.
// Returns true when supervision ends.
func (s *Supervisor) check() bool {
	timeout := s.Timeout()
	idle := time.Since(s.conn.LastActivity())

	if s.onTimeout != nil && idle >= timeout {
		s.onTimeout()
		return true
	}
	if idle >= timeout/supervisionSlices {
		s.sendEcho()
	}
	return false
}

// sendEcho probes the peer. Send errors are left to the read path
// and the timeout check to surface.
func (s *Supervisor) sendEcho() {
	req := wire.EchoRequest{Identifier: uint8(s.echoID.Add(1))}
	_ = s.conn.Send(wire.Frame{Channel: wire.ChannelSignal, Payload: req.Marshal()})
}
