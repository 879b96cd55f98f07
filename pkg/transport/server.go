package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Server constants.
const (
	// DefaultPort is the default Airspeed listen port.
	DefaultPort = 7650

	// helloTimeout bounds the hello exchange on a fresh connection.
	helloTimeout = 5 * time.Second
)

// ErrServerAlreadyRunning indicates Start on a running server.
var ErrServerAlreadyRunning = errors.New("transport: server already running")

// ServerConfig configures an Airspeed peripheral-side server.
type ServerConfig struct {
	// Identity is the peripheral identity announced in hellos.
	// Generated when zero.
	Identity uuid.UUID

	// Address to listen on (e.g. ":7650" or "127.0.0.1:7650").
	Address string

	// SupervisionTimeout is the initial link supervision timeout
	// (default: DefaultSupervisionTimeout).
	SupervisionTimeout time.Duration

	// Logger for protocol logging (optional).
	Logger log.Logger

	// AcceptHello decides whether to admit a link. Nil admits every
	// version-compatible central.
	AcceptHello func(h Hello) HelloStatus

	// OnConnect is called when a link is established.
	OnConnect func(conn *Conn)

	// OnDisconnect is called when a link ends. A nil reason means a
	// clean close by either side.
	OnDisconnect func(conn *Conn, reason error)

	// OnFrame is called for every inbound frame except echo traffic.
	OnFrame func(conn *Conn, f wire.Frame)

	// OnError is called when an error occurs.
	OnError func(conn *Conn, err error)
}

// Server accepts links from centrals and runs their read loops.
type Server struct {
	config   ServerConfig
	listener net.Listener

	// Active connections
	conns   map[*Conn]struct{}
	connsMu sync.RWMutex

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(config ServerConfig) *Server {
	if config.Identity == uuid.Nil {
		config.Identity = uuid.New()
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.SupervisionTimeout <= 0 {
		config.SupervisionTimeout = DefaultSupervisionTimeout
	}

	return &Server{
		config: config,
		conns:  make(map[*Conn]struct{}),
	}
}

// Identity returns the identity announced in hellos.
func (s *Server) Identity() uuid.UUID {
	return s.config.Identity
}

// Start starts the server and begins accepting links.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("transport: listen: %w", err)
	}
	s.listener = listener

	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop stops the server and closes all links.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()

	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active links.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				if s.config.OnError != nil {
					s.config.OnError(nil, fmt.Errorf("transport: accept: %w", err))
				}
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection runs the hello exchange and, when admitted, the
// link's read loop.
func (s *Server) handleConnection(nc net.Conn) {
	defer s.wg.Done()

	nc.SetDeadline(time.Now().Add(helloTimeout))

	peer, err := readHello(nc)
	if err != nil {
		nc.Close()
		if s.config.OnError != nil {
			s.config.OnError(nil, err)
		}
		return
	}

	status := HelloOK
	if peer.Version != ProtocolVersion {
		status = HelloVersionMismatch
	} else if s.config.AcceptHello != nil {
		status = s.config.AcceptHello(peer)
	}

	reply := Hello{
		Version:  ProtocolVersion,
		Role:     RolePeripheral,
		Identity: s.config.Identity,
		Status:   status,
	}
	if err := writeHello(nc, reply); err != nil {
		nc.Close()
		if s.config.OnError != nil {
			s.config.OnError(nil, err)
		}
		return
	}

	if status != HelloOK {
		s.logRefusal(nc, peer, status)
		nc.Close()
		return
	}

	nc.SetDeadline(time.Time{})

	conn := newConn(nc, RolePeripheral, peer)
	if s.config.Logger != nil {
		conn.SetLogger(s.config.Logger)
	}

	s.logLinkState(conn, "", "CONNECTED", "")

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	sup := NewSupervisor(conn, s.config.SupervisionTimeout, func() {
		if s.config.OnError != nil {
			s.config.OnError(conn, ErrSupervisionTimeout)
		}
		conn.CloseWithReason(ErrSupervisionTimeout)
	})
	sup.Start(s.ctx)

	readErr := s.readLoop(conn)
	sup.Stop()

	reason := disconnectReason(conn, readErr)
	conn.Close()

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	reasonText := ""
	if reason != nil {
		reasonText = reason.Error()
	}
	s.logLinkState(conn, "CONNECTED", "DISCONNECTED", reasonText)

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn, reason)
	}
}

// readLoop delivers inbound frames until the link ends.
func (s *Server) readLoop(conn *Conn) error {
	for {
		select {
		case <-conn.closeCh:
			return nil
		case <-s.ctx.Done():
			return nil
		default:
		}

		f, err := conn.nextFrame()
		if err != nil {
			if conn.Closed() || s.ctx.Err() != nil {
				return nil
			}
			if s.config.OnError != nil && s.running.Load() && !errors.Is(err, io.EOF) {
				s.config.OnError(conn, err)
			}
			return err
		}

		if s.config.OnFrame != nil {
			s.config.OnFrame(conn, f)
		}
	}
}

// disconnectReason resolves what to report in OnDisconnect. A reason
// recorded at close wins; clean stream ends count as no reason.
func disconnectReason(conn *Conn, readErr error) error {
	if r := conn.CloseReason(); r != nil {
		return r
	}
	if readErr == nil || errors.Is(readErr, io.EOF) || errors.Is(readErr, net.ErrClosed) {
		return nil
	}
	return readErr
}

// logLinkState logs a link state change.
func (s *Server) logLinkState(conn *Conn, oldState, newState, reason string) {
	if s.config.Logger == nil {
		return
	}

	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.ID().String(),
		Layer:        log.LayerLink,
		Category:     log.CategoryState,
		LocalRole:    log.RolePeripheral,
		RemoteAddr:   conn.RemoteAddr(),
		DeviceID:     s.config.Identity.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// logRefusal logs a hello refused at the door.
func (s *Server) logRefusal(nc net.Conn, peer Hello, status HelloStatus) {
	if s.config.Logger == nil {
		return
	}

	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		Layer:      log.LayerLink,
		Category:   log.CategoryState,
		LocalRole:  log.RolePeripheral,
		RemoteAddr: nc.RemoteAddr().String(),
		DeviceID:   s.config.Identity.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			NewState: "REFUSED",
			Reason:   fmt.Sprintf("%s (central %s)", status, peer.Identity),
		},
	})
}
