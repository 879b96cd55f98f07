package transport

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Connection errors.
var (
	// ErrConnectionClosed indicates an operation on a closed link.
	ErrConnectionClosed = errors.New("transport: connection closed")

	// ErrSupervisionTimeout indicates the peer went quiet for the full
	// supervision timeout and the link was declared lost.
	ErrSupervisionTimeout = errors.New("transport: supervision timeout")
)

// Conn is an established link between a central and a peripheral.
// Both ends hold one; they differ only in who drives reads. The
// peripheral's server runs a read loop and delivers frames through
// callbacks, the central calls Receive directly.
//
// Echo traffic never surfaces: requests are answered and responses
// swallowed inside the read path. Every inbound frame, echo included,
// counts as link activity for supervision.
type Conn struct {
	conn   net.Conn
	framer *Framer

	id         uuid.UUID
	remoteID   uuid.UUID
	localRole  Role
	remoteRole Role
	remoteAddr string

	lastActivity atomic.Int64 // unix nanos of the last inbound frame
	supervisor   atomic.Pointer[Supervisor]

	writeMu sync.Mutex
	readMu  sync.Mutex

	closeOnce   sync.Once
	closeCh     chan struct{}
	closeReason error // written once inside closeOnce, read after closeCh
}

// newConn wraps an accepted or dialed network connection after the
// hello exchange settled identities and roles.
func newConn(nc net.Conn, localRole Role, remote Hello) *Conn {
	c := &Conn{
		conn:       nc,
		framer:     NewFramer(nc),
		id:         uuid.New(),
		remoteID:   remote.Identity,
		localRole:  localRole,
		remoteRole: remote.Role,
		remoteAddr: nc.RemoteAddr().String(),
		closeCh:    make(chan struct{}),
	}
	c.touchActivity()
	return c
}

// ID returns the local connection identifier.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// RemoteID returns the peer identity announced in its hello.
func (c *Conn) RemoteID() uuid.UUID {
	return c.remoteID
}

// LocalRole returns the role of this endpoint.
func (c *Conn) LocalRole() Role {
	return c.localRole
}

// RemoteRole returns the role the peer announced.
func (c *Conn) RemoteRole() Role {
	return c.remoteRole
}

// RemoteAddr returns the peer network address.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// SetLogger configures frame logging for both directions.
func (c *Conn) SetLogger(logger log.Logger) {
	c.framer.SetLogger(logger, c.id.String())
}

// EnableSealing switches the link into sealed mode using the long
// term key. Takes effect for the next frame in each direction; the
// caller coordinates the cutover point with the peer.
func (c *Conn) EnableSealing(ltk [32]byte) error {
	s, err := NewSealer(ltk, c.localRole == RoleCentral)
	if err != nil {
		return err
	}
	c.framer.SetSealer(s)
	return nil
}

// Send writes one frame to the peer. Safe for concurrent use.
func (c *Conn) Send(f wire.Frame) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.framer.WriteFrame(f)
}

// Receive reads the next frame from the peer, waiting at most timeout
// (zero means no limit). Echo traffic is handled internally and never
// returned.
func (c *Conn) Receive(timeout time.Duration) (wire.Frame, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return wire.Frame{}, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	return c.nextFrame()
}

// nextFrame reads frames until one that is not echo traffic arrives.
func (c *Conn) nextFrame() (wire.Frame, error) {
	for {
		f, err := c.framer.ReadFrame()
		if err != nil {
			return wire.Frame{}, err
		}
		c.touchActivity()

		if f.Channel == wire.ChannelSignal {
			if pdu, err := wire.ParseSignal(f.Payload); err == nil {
				switch p := pdu.(type) {
				case wire.EchoRequest:
					rsp := wire.EchoResponse{Identifier: p.Identifier, Data: p.Data}
					if err := c.Send(wire.Frame{Channel: wire.ChannelSignal, Payload: rsp.Marshal()}); err != nil {
						return wire.Frame{}, err
					}
					continue
				case wire.EchoResponse:
					continue
				}
			}
		}

		return f, nil
	}
}

// touchActivity records an inbound frame for supervision.
func (c *Conn) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns when the last inbound frame arrived.
func (c *Conn) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// attachSupervisor hands the conn its liveness watcher so Close can
// stop it and timeout updates can reach it.
func (c *Conn) attachSupervisor(s *Supervisor) {
	c.supervisor.Store(s)
}

// SetSupervisionTimeout applies a new supervision timeout, typically
// after a connection parameter update was accepted.
func (c *Conn) SetSupervisionTimeout(d time.Duration) {
	if s := c.supervisor.Load(); s != nil {
		s.UpdateTimeout(d)
	}
}

// SupervisionTimeout returns the supervision timeout in effect.
func (c *Conn) SupervisionTimeout() time.Duration {
	if s := c.supervisor.Load(); s != nil {
		return s.Timeout()
	}
	return DefaultSupervisionTimeout
}

// Close closes the link.
func (c *Conn) Close() error {
	return c.CloseWithReason(nil)
}

// CloseWithReason closes the link recording why, for disconnect
// reporting. Idempotent; only the first reason sticks.
func (c *Conn) CloseWithReason(reason error) error {
	var err error
	c.closeOnce.Do(func() {
		c.closeReason = reason
		if s := c.supervisor.Load(); s != nil {
			s.Stop()
		}
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// CloseReason returns the reason recorded at close. Nil while open
// and for a plain Close.
func (c *Conn) CloseReason() error {
	select {
	case <-c.closeCh:
		return c.closeReason
	default:
		return nil
	}
}

// Closed reports whether the link has been closed locally.
func (c *Conn) Closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}
