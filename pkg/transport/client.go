package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
)

// ClientConfig configures a central-side client.
type ClientConfig struct {
	// Identity is the central identity announced in hellos.
	// Generated when zero.
	Identity uuid.UUID

	// ConnectTimeout bounds dialing plus the hello exchange
	// (default: 10s).
	ConnectTimeout time.Duration

	// SupervisionTimeout is the initial probe pacing for the link
	// (default: DefaultSupervisionTimeout).
	SupervisionTimeout time.Duration

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// Client dials peripherals.
type Client struct {
	config ClientConfig
}

// NewClient creates a new client.
func NewClient(config ClientConfig) *Client {
	if config.Identity == uuid.Nil {
		config.Identity = uuid.New()
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.SupervisionTimeout <= 0 {
		config.SupervisionTimeout = DefaultSupervisionTimeout
	}

	return &Client{config: config}
}

// Identity returns the identity announced in hellos.
func (c *Client) Identity() uuid.UUID {
	return c.config.Identity
}

// Connect establishes a link to the peripheral at address. On success
// the link already probes for liveness in the background; echo
// traffic stays invisible to Receive.
func (c *Client) Connect(ctx context.Context, address string) (*Conn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		nc.SetDeadline(deadline)
	} else {
		nc.SetDeadline(time.Now().Add(helloTimeout))
	}

	hello := Hello{
		Version:  ProtocolVersion,
		Role:     RoleCentral,
		Identity: c.config.Identity,
		Status:   HelloOK,
	}
	if err := writeHello(nc, hello); err != nil {
		nc.Close()
		return nil, err
	}

	peer, err := readHello(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}
	if err := statusError(peer.Status); err != nil {
		nc.Close()
		return nil, err
	}
	if peer.Version != ProtocolVersion {
		nc.Close()
		return nil, ErrHelloVersionMismatch
	}

	nc.SetDeadline(time.Time{})

	conn := newConn(nc, RoleCentral, peer)
	if c.config.Logger != nil {
		conn.SetLogger(c.config.Logger)
	}

	// Probe-only supervision keeps the peripheral's watchdog fed even
	// while the application sits between operations.
	sup := NewSupervisor(conn, c.config.SupervisionTimeout, nil)
	sup.Start(context.Background())

	return conn, nil
}
