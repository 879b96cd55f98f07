package central

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/gatt"
	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/pairing"
	"github.com/airspeed-wireless/airspeed-go/pkg/transport"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Central errors.
var (
	// ErrNotConnected indicates an operation that needs a live link.
	ErrNotConnected = errors.New("central: not connected")

	// ErrAlreadyConnected indicates Connect on a connected central.
	ErrAlreadyConnected = errors.New("central: already connected")

	// ErrNotSubscribed indicates a measurement without a subscription.
	ErrNotSubscribed = errors.New("central: not subscribed")

	// ErrRequestTimeout indicates the peripheral did not answer a
	// request within the request timeout.
	ErrRequestTimeout = errors.New("central: request timed out")

	// ErrUnexpectedResponse indicates a response of the wrong type.
	ErrUnexpectedResponse = errors.New("central: unexpected response")
)

// RequestError is an ATT error response surfaced as a Go error.
type RequestError struct {
	// Request is the opcode the peripheral rejected.
	Request wire.AttOpcode

	// Handle is the attribute handle the request named.
	Handle uint16

	// Code is the ATT error code.
	Code wire.AttError
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("central: %s on handle %#04x rejected: %s", e.Request, e.Handle, e.Code)
}

// Config configures a Central.
type Config struct {
	// Identity is the probe identity announced in hellos. Generated
	// when zero.
	Identity uuid.UUID

	// ConnectTimeout bounds dialing plus the hello exchange
	// (default: 10s).
	ConnectTimeout time.Duration

	// RequestTimeout bounds each ATT or signaling request
	// (default: 5s).
	RequestTimeout time.Duration

	// ReceiveMTU is announced in the MTU exchange Connect performs.
	// Zero skips the exchange and leaves the link at the default
	// unit size.
	ReceiveMTU uint16

	// Pair runs a pairing exchange after connecting and seals the
	// link with the derived key.
	Pair bool

	// LTK seals the link immediately after the hello with a bonded
	// key instead of pairing. Ignored when Pair is set.
	LTK *[pairing.LTKSize]byte

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// EventLog captures protocol events (optional).
	EventLog log.Logger
}

// DefaultConfig returns a Config that negotiates the largest
// transmission unit the protocol allows.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 5 * time.Second,
		ReceiveMTU:     wire.MaxMTU,
	}
}

// NotificationFunc receives every data notification as it arrives.
// It runs on the read loop; a slow handler slows the whole link down.
type NotificationFunc func(handle uint16, value []byte)

// Central is a throughput probe attached to at most one peripheral.
type Central struct {
	config Config
	client *transport.Client

	conn atomic.Pointer[transport.Conn]
	down atomic.Pointer[chan struct{}]

	mtu        atomic.Uint32
	subscribed atomic.Bool

	// One ATT request in flight at a time; reqMu serializes callers,
	// the waiter pointers hand the read loop its delivery target.
	reqMu   sync.Mutex
	attWait atomic.Pointer[chan wire.AttPDU]
	sigWait atomic.Pointer[chan wire.SignalPDU]
	signalID atomic.Uint32

	notifications atomic.Uint64
	notifyBytes   atomic.Uint64

	session atomic.Pointer[measureSession]

	callbackMu   sync.Mutex
	onNotify     NotificationFunc
	onDisconnect func(reason error)

	readWG sync.WaitGroup
}

// New creates a central. Connect attaches it to a peripheral.
func New(config Config) *Central {
	if config.Identity == uuid.Nil {
		config.Identity = uuid.New()
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Second
	}

	return &Central{
		config: config,
		client: transport.NewClient(transport.ClientConfig{
			Identity:       config.Identity,
			ConnectTimeout: config.ConnectTimeout,
			Logger:         config.EventLog,
		}),
	}
}

// Identity returns the probe identity.
func (c *Central) Identity() uuid.UUID {
	return c.config.Identity
}

// Connected reports whether a link is up.
func (c *Central) Connected() bool {
	return c.conn.Load() != nil
}

// DeviceID returns the connected peripheral's identity, or uuid.Nil.
func (c *Central) DeviceID() uuid.UUID {
	if conn := c.conn.Load(); conn != nil {
		return conn.RemoteID()
	}
	return uuid.Nil
}

// MTU returns the transmission unit negotiated for the link. Before
// any exchange this is the protocol default.
func (c *Central) MTU() uint16 {
	return uint16(c.mtu.Load())
}

// EffectiveUnit returns the usable notification payload size at the
// current transmission unit.
func (c *Central) EffectiveUnit() int {
	return int(c.MTU()) - wire.NotifyOverhead
}

// Subscribed reports whether the data subscription is active.
func (c *Central) Subscribed() bool {
	return c.subscribed.Load()
}

// OnNotification registers fn for every inbound data notification.
func (c *Central) OnNotification(fn NotificationFunc) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onNotify = fn
}

// OnDisconnect registers fn to run when the link goes down, with the
// close reason when one is known.
func (c *Central) OnDisconnect(fn func(reason error)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onDisconnect = fn
}

// Connect dials the peripheral at address, optionally seals the link,
// and performs the MTU exchange the config asks for. A central holds
// one link at a time.
func (c *Central) Connect(ctx context.Context, address string) error {
	if c.Connected() {
		return ErrAlreadyConnected
	}

	conn, err := c.client.Connect(ctx, address)
	if err != nil {
		return err
	}

	switch {
	case c.config.Pair:
		if err := c.pair(conn); err != nil {
			conn.Close()
			return err
		}
	case c.config.LTK != nil:
		if err := conn.EnableSealing(*c.config.LTK); err != nil {
			conn.Close()
			return err
		}
	}

	c.mtu.Store(uint32(wire.DefaultMTU))
	c.subscribed.Store(false)
	c.conn.Store(conn)

	down := make(chan struct{})
	c.down.Store(&down)
	c.readWG.Add(1)
	go c.readLoop(conn, down)

	if c.config.ReceiveMTU != 0 {
		if _, err := c.ExchangeMTU(c.config.ReceiveMTU); err != nil {
			c.Close()
			return fmt.Errorf("central: MTU exchange: %w", err)
		}
	}

	c.logState("CONNECTED", conn.RemoteAddr())
	c.debugLog("connected", "device", conn.RemoteID(), "addr", conn.RemoteAddr(), "mtu", c.MTU())
	return nil
}

// pair runs the initiator side of a pairing exchange synchronously,
// before the read loop owns the link, and seals on completion.
func (c *Central) pair(conn *transport.Conn) error {
	init, err := pairing.NewInitiator(c.config.Identity, conn.RemoteID())
	if err != nil {
		return err
	}

	out := init.Start()
	for out != nil {
		frame := wire.Frame{Channel: wire.ChannelSecurity, Payload: out.Marshal()}
		if err := conn.Send(frame); err != nil {
			return fmt.Errorf("central: pairing send: %w", err)
		}
		if init.Done() {
			break
		}

		reply, err := c.receiveSecurity(conn)
		if err != nil {
			return err
		}
		if out, err = init.Handle(reply); err != nil {
			return err
		}
	}
	if !init.Done() {
		return pairing.ErrPairingFailed
	}

	ltk, ok := init.LTK()
	if !ok {
		return pairing.ErrPairingFailed
	}
	if err := conn.EnableSealing(ltk); err != nil {
		return err
	}
	c.debugLog("link sealed", "device", conn.RemoteID())
	return nil
}

// receiveSecurity reads frames until a security PDU arrives.
func (c *Central) receiveSecurity(conn *transport.Conn) (wire.SMPPDU, error) {
	deadline := time.Now().Add(c.config.RequestTimeout)
	for time.Now().Before(deadline) {
		f, err := conn.Receive(time.Until(deadline))
		if err != nil {
			return nil, fmt.Errorf("central: pairing receive: %w", err)
		}
		if f.Channel != wire.ChannelSecurity {
			continue
		}
		return wire.ParseSMP(f.Payload)
	}
	return nil, ErrRequestTimeout
}

// Close tears the link down. Safe to call at any time.
func (c *Central) Close() error {
	conn := c.conn.Load()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	c.readWG.Wait()
	return err
}

// Disconnect is Close under the name the consoles use.
func (c *Central) Disconnect() error {
	return c.Close()
}

// ExchangeMTU announces rx as this side's receive MTU and adopts the
// smaller of the two announcements, clamped to the protocol maximum.
func (c *Central) ExchangeMTU(rx uint16) (uint16, error) {
	if rx > wire.MaxMTU {
		rx = wire.MaxMTU
	}
	reply, err := c.request(wire.ExchangeMTURequest{MTU: rx})
	if err != nil {
		return 0, err
	}
	rsp, ok := reply.(wire.ExchangeMTUResponse)
	if !ok {
		return 0, fmt.Errorf("%w: %s to MTU exchange", ErrUnexpectedResponse, reply.Opcode())
	}

	unit := rx
	if rsp.MTU < unit {
		unit = rsp.MTU
	}
	if unit < wire.DefaultMTU {
		unit = wire.DefaultMTU
	}
	c.mtu.Store(uint32(unit))
	c.debugLog("unit size negotiated", "announced", rx, "peer", rsp.MTU, "unit", unit)
	return unit, nil
}

// Subscribe enables data notifications through the CCCD.
func (c *Central) Subscribe() error {
	return c.writeClientConfig(gatt.ClientConfigNotify)
}

// Unsubscribe disables data notifications.
func (c *Central) Unsubscribe() error {
	return c.writeClientConfig(0)
}

func (c *Central) writeClientConfig(cfg gatt.ClientConfig) error {
	reply, err := c.request(wire.WriteRequest{
		Handle: gatt.HandleDataClientConfig,
		Value:  cfg.Encode(),
	})
	if err != nil {
		return err
	}
	if _, ok := reply.(wire.WriteResponse); !ok {
		return fmt.Errorf("%w: %s to CCCD write", ErrUnexpectedResponse, reply.Opcode())
	}
	c.subscribed.Store(cfg.NotificationsEnabled())

	state := "UNSUBSCRIBED"
	if cfg.NotificationsEnabled() {
		state = "SUBSCRIBED"
	}
	c.logState(state, "")
	return nil
}

// StartStream asks the peripheral to start pushing data. The control
// point is write-without-response; there is no acknowledgement.
func (c *Central) StartStream() error {
	return c.WriteControl(gatt.ControlSetStreaming(true))
}

// StopStream asks the peripheral to stop pushing data.
func (c *Central) StopStream() error {
	return c.WriteControl(gatt.ControlSetStreaming(false))
}

// WriteControl sends a raw value to the control point.
func (c *Central) WriteControl(value []byte) error {
	conn := c.conn.Load()
	if conn == nil {
		return ErrNotConnected
	}
	cmd := wire.WriteCommand{Handle: gatt.HandleControl, Value: value}
	return conn.Send(wire.Frame{Channel: wire.ChannelATT, Payload: cmd.Marshal()})
}

// ReadAttribute reads one attribute value from the peripheral.
func (c *Central) ReadAttribute(handle uint16) ([]byte, error) {
	reply, err := c.request(wire.ReadRequest{Handle: handle})
	if err != nil {
		return nil, err
	}
	rsp, ok := reply.(wire.ReadResponse)
	if !ok {
		return nil, fmt.Errorf("%w: %s to read", ErrUnexpectedResponse, reply.Opcode())
	}
	return rsp.Value, nil
}

// RequestConnParams asks the peripheral to adopt new link parameters.
// An accepted timeout also moves the link's supervision timeout.
func (c *Central) RequestConnParams(params wire.ConnParams) error {
	conn := c.conn.Load()
	if conn == nil {
		return ErrNotConnected
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	req := wire.ConnParamUpdateRequest{
		Identifier: uint8(c.signalID.Add(1)),
		Params:     params,
	}

	ch := make(chan wire.SignalPDU, 1)
	c.sigWait.Store(&ch)
	defer c.sigWait.Store(nil)

	if err := conn.Send(wire.Frame{Channel: wire.ChannelSignal, Payload: req.Marshal()}); err != nil {
		return err
	}

	rsp, err := c.awaitSignal(ch)
	if err != nil {
		return err
	}
	update, ok := rsp.(wire.ConnParamUpdateResponse)
	if !ok {
		return fmt.Errorf("%w: %s to parameter update", ErrUnexpectedResponse, rsp.Code())
	}
	if update.Result != wire.ConnParamsAccepted {
		return fmt.Errorf("central: parameter update rejected (%#04x)", update.Result)
	}

	if params.TimeoutDuration() > 0 {
		conn.SetSupervisionTimeout(params.TimeoutDuration())
	}
	return nil
}

// Notifications returns the number of data notifications received
// over the lifetime of the central.
func (c *Central) Notifications() uint64 {
	return c.notifications.Load()
}

// NotificationBytes returns the payload bytes received over the
// lifetime of the central.
func (c *Central) NotificationBytes() uint64 {
	return c.notifyBytes.Load()
}

// request sends one ATT request and waits for its answer. Error
// responses come back as *RequestError.
func (c *Central) request(pdu wire.AttPDU) (wire.AttPDU, error) {
	conn := c.conn.Load()
	if conn == nil {
		return nil, ErrNotConnected
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	ch := make(chan wire.AttPDU, 1)
	c.attWait.Store(&ch)
	defer c.attWait.Store(nil)

	if err := conn.Send(wire.Frame{Channel: wire.ChannelATT, Payload: pdu.Marshal()}); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		if errRsp, ok := reply.(wire.ErrorResponse); ok {
			return nil, &RequestError{Request: errRsp.Request, Handle: errRsp.Handle, Code: errRsp.Code}
		}
		return reply, nil
	case <-c.downChan():
		return nil, c.closedErr(conn)
	case <-time.After(c.config.RequestTimeout):
		return nil, ErrRequestTimeout
	}
}

func (c *Central) awaitSignal(ch chan wire.SignalPDU) (wire.SignalPDU, error) {
	select {
	case rsp := <-ch:
		return rsp, nil
	case <-c.downChan():
		return nil, ErrNotConnected
	case <-time.After(c.config.RequestTimeout):
		return nil, ErrRequestTimeout
	}
}

// downChan returns the channel closed when the current link dies.
func (c *Central) downChan() <-chan struct{} {
	if p := c.down.Load(); p != nil {
		return *p
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

func (c *Central) closedErr(conn *transport.Conn) error {
	if reason := conn.CloseReason(); reason != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, reason)
	}
	return ErrNotConnected
}

// readLoop owns the link's receive side until the link dies.
func (c *Central) readLoop(conn *transport.Conn, down chan struct{}) {
	defer c.readWG.Done()
	defer close(down)

	for {
		f, err := conn.Receive(0)
		if err != nil {
			c.teardown(conn, err)
			return
		}

		switch f.Channel {
		case wire.ChannelATT:
			c.handleATT(f.Payload)
		case wire.ChannelSignal:
			c.handleSignal(f.Payload)
		default:
			c.debugLog("frame on unhandled channel", "channel", f.Channel)
		}
	}
}

func (c *Central) handleATT(payload []byte) {
	pdu, err := wire.ParseAtt(payload)
	if err != nil {
		c.debugLog("undecodable ATT PDU", "err", err)
		return
	}

	if ntf, ok := pdu.(wire.Notification); ok {
		c.handleNotification(ntf)
		return
	}

	if p := c.attWait.Load(); p != nil {
		select {
		case *p <- pdu:
		default:
		}
		return
	}
	c.debugLog("unsolicited ATT PDU dropped", "opcode", pdu.Opcode())
}

func (c *Central) handleNotification(ntf wire.Notification) {
	c.notifications.Add(1)
	c.notifyBytes.Add(uint64(len(ntf.Value)))

	if s := c.session.Load(); s != nil {
		s.observe(ntf.Value)
	}

	c.callbackMu.Lock()
	fn := c.onNotify
	c.callbackMu.Unlock()
	if fn != nil {
		fn(ntf.Handle, ntf.Value)
	}
}

func (c *Central) handleSignal(payload []byte) {
	pdu, err := wire.ParseSignal(payload)
	if err != nil {
		c.debugLog("undecodable signaling PDU", "err", err)
		return
	}
	if p := c.sigWait.Load(); p != nil {
		select {
		case *p <- pdu:
		default:
		}
		return
	}
	c.debugLog("unsolicited signaling PDU dropped", "code", pdu.Code())
}

// teardown clears the link state after the read loop observed the
// link dying, and reports the reason onward.
func (c *Central) teardown(conn *transport.Conn, readErr error) {
	if !c.conn.CompareAndSwap(conn, nil) {
		return
	}
	c.subscribed.Store(false)
	c.mtu.Store(uint32(wire.DefaultMTU))

	reason := conn.CloseReason()
	if reason == nil && !conn.Closed() {
		reason = readErr
	}
	conn.Close()

	c.logState("DISCONNECTED", reasonString(reason))
	c.debugLog("disconnected", "reason", reasonString(reason))

	c.callbackMu.Lock()
	fn := c.onDisconnect
	c.callbackMu.Unlock()
	if fn != nil {
		fn(reason)
	}
}

func reasonString(reason error) string {
	if reason == nil {
		return "local close"
	}
	return reason.Error()
}

func (c *Central) logState(newState, detail string) {
	if c.config.EventLog == nil {
		return
	}
	ev := log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		LocalRole: log.RoleCentral,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			NewState: newState,
			Reason:   detail,
		},
	}
	if conn := c.conn.Load(); conn != nil {
		ev.ConnectionID = conn.ID().String()
		ev.RemoteAddr = conn.RemoteAddr()
		ev.DeviceID = conn.RemoteID().String()
	}
	c.config.EventLog.Log(ev)
}

func (c *Central) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
