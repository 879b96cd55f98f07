package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrManagerClosed    = errors.New("connection manager closed")
	ErrAlreadyConnected = errors.New("already connected")
)

// redialAttemptTimeout bounds a single redial attempt.
const redialAttemptTimeout = 10 * time.Second

// State represents the link state as the manager sees it.
type State uint8

const (
	// StateDisconnected indicates no active link.
	StateDisconnected State = iota

	// StateConnecting indicates a dial is in progress.
	StateConnecting

	// StateConnected indicates a live link.
	StateConnected

	// StateReconnecting indicates the link dropped and redialing is in
	// progress.
	StateReconnecting

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// DialFunc establishes the link to the device. It returns nil once the
// link is up.
type DialFunc func(ctx context.Context) error

// Manager manages the probe's link lifecycle with automatic redial.
type Manager struct {
	mu sync.RWMutex

	state State

	backoff *Backoff
	dial    DialFunc

	autoReconnect bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Signals the redial loop that the link needs chasing
	reconnectCh chan struct{}

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a connection manager around a dial function.
func NewManager(dial DialFunc) *Manager {
	return NewManagerWithBackoff(dial, NewBackoff())
}

// NewManagerWithBackoff creates a connection manager with a custom
// backoff schedule.
func NewManagerWithBackoff(dial DialFunc, backoff *Backoff) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:         StateDisconnected,
		backoff:       backoff,
		dial:          dial,
		autoReconnect: true,
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}
}

// State returns the current link state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true while the link is up.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// SetAutoReconnect enables or disables automatic redialing.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// Connect dials the device once.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(oldState, StateConnecting)
	}

	err := m.dial(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		if m.onStateChange != nil {
			m.onStateChange(StateConnecting, StateDisconnected)
		}
		return err
	}

	m.state = StateConnected
	m.backoff.Reset()
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(StateConnecting, StateConnected)
	}
	if m.onConnected != nil {
		m.onConnected()
	}

	return nil
}

// Disconnect marks the link as intentionally down. No redial is
// attempted regardless of the auto-reconnect setting.
func (m *Manager) Disconnect() {
	m.transitionDown(false)
}

// LinkLost marks the link as lost. Call this when the transport
// reports a disconnect the probe did not ask for; redialing starts if
// auto-reconnect is enabled.
func (m *Manager) LinkLost() {
	m.transitionDown(true)
}

func (m *Manager) transitionDown(lost bool) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	reconnect := lost && m.autoReconnect

	newState := StateDisconnected
	if reconnect {
		newState = StateReconnecting
	}
	m.state = newState
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(oldState, newState)
	}
	if m.onDisconnected != nil {
		m.onDisconnected()
	}

	if reconnect {
		m.triggerReconnect()
	}
}

// StartReconnectLoop starts the background redial loop. Must be called
// once before lost links are chased.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close shuts down the manager and stops any redialing.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	if m.onStateChange != nil {
		m.onStateChange(oldState, StateClosed)
	}

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.chaseLink()
		}
	}
}

// chaseLink redials until the link is up, the manager closes, or the
// state changes under us.
func (m *Manager) chaseLink() {
	for {
		m.mu.RLock()
		state := m.state
		m.mu.RUnlock()

		if state != StateReconnecting {
			return
		}

		delay := m.backoff.Next()
		attempt := m.backoff.Attempts()

		if m.onReconnecting != nil {
			m.onReconnecting(attempt, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(m.ctx, redialAttemptTimeout)
		err := m.dial(ctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			oldState := m.state
			m.state = StateConnected
			m.backoff.Reset()
			m.mu.Unlock()

			if m.onStateChange != nil {
				m.onStateChange(oldState, StateConnected)
			}
			if m.onConnected != nil {
				m.onConnected()
			}
			return
		}

		// Failed, loop with the next backoff delay
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for a link coming up.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for a link going down.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback for redial attempts.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// BackoffAttempts returns the redial attempts since the last success.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}
