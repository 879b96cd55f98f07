package peripheral

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/discovery"
	"github.com/airspeed-wireless/airspeed-go/pkg/gatt"
	"github.com/airspeed-wireless/airspeed-go/pkg/link"
	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/pairing"
	"github.com/airspeed-wireless/airspeed-go/pkg/persistence"
	"github.com/airspeed-wireless/airspeed-go/pkg/stream"
	"github.com/airspeed-wireless/airspeed-go/pkg/transport"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Peripheral orchestrates the device: transport server, attribute
// table, link tracker, subscription gate, and the stream pump.
type Peripheral struct {
	mu     sync.RWMutex
	config Config
	state  State

	server  *transport.Server
	table   *gatt.Table
	tracker *link.Tracker
	gate    *link.Gate
	gen     *stream.Generator
	pump    *stream.Pump

	// active is the one admitted link. The tracker enforces the
	// single-central policy; this pointer hands the concrete conn to
	// the notify path without a type assertion.
	active atomic.Pointer[transport.Conn]

	advertiser      discovery.Advertiser
	advertiseWanted atomic.Bool

	// cccd is the data characteristic's client configuration,
	// per-link state reset on connect.
	cccdMu sync.Mutex
	cccd   gatt.ClientConfig

	// responder runs the pairing exchange for the current link.
	pairingMu sync.Mutex
	responder *pairing.Responder

	// Stream accounting for the stop-time log snapshot.
	streamMu    sync.Mutex
	streamSince time.Time
	streamBase  stream.Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a peripheral. A zero config identity is taken from the
// profile store when one is configured, minted otherwise, so a device
// with a profile keeps its identity across restarts.
func New(config Config) (*Peripheral, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Identity == uuid.Nil {
		if config.Profile != nil {
			prof, err := config.Profile.LoadOrCreate(config.DeviceName)
			if err != nil {
				return nil, fmt.Errorf("peripheral: load profile: %w", err)
			}
			config.Identity = prof.ID
		} else {
			config.Identity = uuid.New()
		}
	}

	p := &Peripheral{
		config:  config,
		state:   StateIdle,
		tracker: link.NewTracker(),
		gate:    link.NewGate(),
		gen:     stream.NewGenerator(),
	}

	p.table = gatt.NewThroughputTable(gatt.ThroughputHandlers{
		ControlWrite:      p.handleControlWrite,
		ClientConfigWrite: p.handleClientConfigWrite,
		ClientConfigRead:  p.clientConfig,
	})

	tx := stream.NewTransmitter(p.tracker, p.notifyData)
	p.pump = stream.NewPump(p.gate, p.tracker, p.gen, tx, config.Logger)

	p.server = transport.NewServer(transport.ServerConfig{
		Identity:           config.Identity,
		Address:            config.Address,
		SupervisionTimeout: config.SupervisionTimeout,
		Logger:             config.EventLog,
		AcceptHello:        p.acceptHello,
		OnConnect:          p.onConnect,
		OnDisconnect:       p.onDisconnect,
		OnFrame:            p.handleFrame,
		OnError:            p.onError,
	})

	return p, nil
}

// Identity returns the device identity.
func (p *Peripheral) Identity() uuid.UUID {
	return p.config.Identity
}

// State returns the lifecycle state.
func (p *Peripheral) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Running reports whether the peripheral is started.
func (p *Peripheral) Running() bool {
	return p.State() == StateRunning
}

// Start begins listening, starts the stream pump, and advertises the
// service.
func (p *Peripheral) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle && p.state != StateStopped {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.state = StateStarting
	p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(ctx)

	if err := p.server.Start(p.ctx); err != nil {
		p.cancel()
		p.setState(StateIdle)
		return err
	}

	if p.config.Advertiser != nil {
		p.advertiser = p.config.Advertiser
	} else if !p.config.DisableAdvertising {
		adv, err := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
		if err != nil {
			p.server.Stop()
			p.cancel()
			p.setState(StateIdle)
			return err
		}
		p.advertiser = adv
	}
	p.advertiseWanted.Store(p.advertiser != nil)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.pump.Run(p.ctx)
	}()

	p.setState(StateRunning)

	if err := p.advertise(); err != nil {
		p.debugLog("initial advertise failed", "err", err)
	}

	return nil
}

func (p *Peripheral) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Shutdown stops advertising, closes the link, and stops the pump.
// Idempotent.
func (p *Peripheral) Shutdown() error {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		return nil
	}
	p.state = StateStopping
	p.mu.Unlock()

	if err := p.stopAdvertising(); err != nil {
		p.debugLog("stop advertising failed", "err", err)
	}

	p.cancel()
	p.server.Stop()
	p.wg.Wait()

	p.setState(StateStopped)

	return nil
}

// Addr returns the listen address, nil before Start.
func (p *Peripheral) Addr() net.Addr {
	return p.server.Addr()
}

// Connected reports whether a central is attached.
func (p *Peripheral) Connected() bool {
	return p.tracker.Connected()
}

// Stats returns the pump's cumulative counters.
func (p *Peripheral) Stats() stream.Stats {
	return p.pump.Stats()
}

// Counter returns the payload generator's counter position.
func (p *Peripheral) Counter() uint32 {
	return p.gen.Counter()
}

// UnitSize returns the transmission unit in effect.
func (p *Peripheral) UnitSize() uint16 {
	return p.tracker.UnitSize()
}

// Status is a point-in-time snapshot for consoles and tests.
type Status struct {
	State       State
	Advertising bool

	Connected   bool
	CentralID   uuid.UUID
	CentralAddr string

	UnitSize             uint16
	NotificationsEnabled bool
	StreamingRequested   bool
	StreamingActive      bool

	Params    link.Params
	HasParams bool

	Counter uint32
	Stats   stream.Stats
}

// Status returns a snapshot of the peripheral.
func (p *Peripheral) Status() Status {
	st := Status{
		State:                p.State(),
		Advertising:          p.Advertising(),
		UnitSize:             p.tracker.UnitSize(),
		NotificationsEnabled: p.gate.NotificationsEnabled(),
		StreamingRequested:   p.gate.StreamingRequested(),
		StreamingActive:      p.gate.StreamingActive(),
		Counter:              p.gen.Counter(),
		Stats:                p.pump.Stats(),
	}
	if conn := p.active.Load(); conn != nil {
		st.Connected = true
		st.CentralID = conn.RemoteID()
		st.CentralAddr = conn.RemoteAddr()
	}
	st.Params, st.HasParams = p.tracker.Params()
	return st
}

// DisconnectCentral closes the attached link, if any.
func (p *Peripheral) DisconnectCentral() error {
	conn := p.active.Load()
	if conn == nil {
		return link.ErrNoActiveConnection
	}
	return conn.Close()
}

// Advertising reports whether the service is currently announced.
func (p *Peripheral) Advertising() bool {
	return p.advertiser != nil && p.advertiser.Advertising()
}

// SetAdvertising turns announcement on or off. Turning it on while a
// central is attached arms re-advertising for the next disconnect
// instead of announcing immediately.
func (p *Peripheral) SetAdvertising(on bool) error {
	if p.advertiser == nil {
		return ErrAdvertisingDisabled
	}
	p.advertiseWanted.Store(on)
	if !on {
		return p.stopAdvertising()
	}
	if p.tracker.Connected() {
		return nil
	}
	return p.advertise()
}

// acceptHello admits a central unless one is already attached.
func (p *Peripheral) acceptHello(h transport.Hello) transport.HelloStatus {
	if p.tracker.Connected() {
		return transport.HelloBusy
	}
	return transport.HelloOK
}

// onConnect attaches an admitted link. Two centrals can pass the hello
// check back to back; the tracker arbitrates and the loser is closed.
func (p *Peripheral) onConnect(conn *transport.Conn) {
	if err := p.tracker.OnConnected(conn); err != nil {
		p.debugLog("terminating extra central", "remote", conn.RemoteAddr())
		conn.CloseWithReason(transport.ErrLinkBusy)
		return
	}
	p.active.Store(conn)

	p.cccdMu.Lock()
	p.cccd = 0
	p.cccdMu.Unlock()

	p.pairingMu.Lock()
	p.responder = pairing.NewResponder(conn.RemoteID(), p.config.Identity)
	p.pairingMu.Unlock()

	if err := p.stopAdvertising(); err != nil {
		p.debugLog("stop advertising failed", "err", err)
	}

	p.debugLog("central attached", "central", conn.RemoteID(), "remote", conn.RemoteAddr())
}

// onDisconnect releases the link and closes the gate, which stops the
// pump within one iteration. Teardown of a refused extra central also
// lands here and is ignored.
func (p *Peripheral) onDisconnect(conn *transport.Conn, reason error) {
	if !p.active.CompareAndSwap(conn, nil) {
		return
	}

	reasonText := "disconnect"
	if reason != nil {
		reasonText = reason.Error()
	}

	wasActive := p.gate.StreamingActive()
	p.gate.Reset()
	p.noteStreamGate(wasActive, reasonText)

	p.cccdMu.Lock()
	p.cccd = 0
	p.cccdMu.Unlock()

	p.pairingMu.Lock()
	p.responder = nil
	p.pairingMu.Unlock()

	p.tracker.OnDisconnected(reasonText)

	p.debugLog("central detached", "reason", reasonText)

	if p.Running() {
		if err := p.advertise(); err != nil {
			p.debugLog("re-advertise failed", "err", err)
		}
	}
}

// onError surfaces transport errors into the event log.
func (p *Peripheral) onError(conn *transport.Conn, err error) {
	p.debugLog("transport error", "err", err)
	p.logEvent(log.Event{
		Layer:    log.LayerLink,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerLink,
			Message: err.Error(),
		},
	})
}

// notifyData is the transmitter's notify primitive: one handle value
// notification on the data characteristic over the live link.
func (p *Peripheral) notifyData(value []byte) error {
	conn := p.active.Load()
	if conn == nil {
		return link.ErrNoActiveConnection
	}
	ntf := wire.Notification{Handle: gatt.HandleData, Value: value}
	return conn.Send(wire.Frame{Channel: wire.ChannelATT, Payload: ntf.Marshal()})
}

// advertise announces the service. No-op without an advertiser or
// while announcement is switched off.
func (p *Peripheral) advertise() error {
	if p.advertiser == nil || !p.advertiseWanted.Load() {
		return nil
	}
	ann, err := p.announcement()
	if err != nil {
		return err
	}
	if err := p.advertiser.Advertise(p.ctx, ann); err != nil {
		return fmt.Errorf("peripheral: advertise: %w", err)
	}
	p.logAdvertising("ON", "")
	return nil
}

// stopAdvertising withdraws the announcement.
func (p *Peripheral) stopAdvertising() error {
	if p.advertiser == nil || !p.advertiser.Advertising() {
		return nil
	}
	if err := p.advertiser.Stop(); err != nil {
		return fmt.Errorf("peripheral: stop advertising: %w", err)
	}
	p.logAdvertising("OFF", "")
	return nil
}

// announcement builds the mDNS announcement from the live listener.
func (p *Peripheral) announcement() (*discovery.Announcement, error) {
	addr := p.server.Addr()
	if addr == nil {
		return nil, ErrNotStarted
	}
	port, err := listenPort(addr.String())
	if err != nil {
		return nil, err
	}
	return &discovery.Announcement{
		DeviceID:        p.config.Identity,
		DeviceName:      p.config.DeviceName,
		ServiceUUID:     gatt.ThroughputServiceUUID.String(),
		ProtocolVersion: transport.ProtocolVersion,
		Port:            port,
	}, nil
}

// saveBond persists the bonded peer and its long term key.
func (p *Peripheral) saveBond(peer uuid.UUID, ltk [pairing.LTKSize]byte) {
	store := p.config.Profile
	if store == nil {
		return
	}
	prof, err := store.LoadOrCreate(p.config.DeviceName)
	if err != nil {
		p.debugLog("bond not persisted", "err", err)
		return
	}
	prof.Bond = persistence.NewBond(peer, ltk)
	if err := store.Save(prof); err != nil {
		p.debugLog("bond not persisted", "err", err)
	}
}

// noteStreamGate logs stream start/stop transitions around a gate
// mutation. wasActive is the gate state sampled before the mutation;
// a stop also emits a stats snapshot covering the active period.
func (p *Peripheral) noteStreamGate(wasActive bool, reason string) {
	nowActive := p.gate.StreamingActive()
	if nowActive == wasActive {
		return
	}

	if nowActive {
		p.streamMu.Lock()
		p.streamSince = time.Now()
		p.streamBase = p.pump.Stats()
		p.streamMu.Unlock()
		p.logStreamState("IDLE", "STREAMING", reason)
		return
	}

	p.streamMu.Lock()
	since := p.streamSince
	base := p.streamBase
	p.streamMu.Unlock()

	p.logStreamState("STREAMING", "IDLE", reason)

	cur := p.pump.Stats()
	p.logEvent(log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryStream,
		Stream: &log.StreamEvent{
			Blocks:       cur.Blocks - base.Blocks,
			Bytes:        cur.Bytes - base.Bytes,
			SendFailures: cur.SendFailures - base.SendFailures,
			UnitSize:     p.tracker.UnitSize(),
			Elapsed:      time.Since(since),
		},
	})
}

func (p *Peripheral) logStreamState(oldState, newState, reason string) {
	p.logEvent(log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityStream,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (p *Peripheral) logAdvertising(newState, reason string) {
	p.logEvent(log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAdvertising,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// logEvent stamps and forwards an event to the configured log.
func (p *Peripheral) logEvent(ev log.Event) {
	if p.config.EventLog == nil {
		return
	}
	ev.Timestamp = time.Now()
	ev.LocalRole = log.RolePeripheral
	ev.DeviceID = p.config.Identity.String()
	if conn := p.active.Load(); conn != nil {
		ev.ConnectionID = conn.ID().String()
		ev.RemoteAddr = conn.RemoteAddr()
	}
	p.config.EventLog.Log(ev)
}

// debugLog logs a debug message if logging is enabled.
func (p *Peripheral) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}

// listenPort extracts the port from a listen address.
func listenPort(addr string) (uint16, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("peripheral: parse listen address: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("peripheral: parse listen port: %w", err)
	}
	return uint16(port), nil
}
