package peripheral

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/airspeed-wireless/airspeed-go/pkg/discovery"
	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/persistence"
	"github.com/airspeed-wireless/airspeed-go/pkg/transport"
)

// Peripheral errors.
var (
	// ErrAlreadyStarted indicates Start on a running peripheral.
	ErrAlreadyStarted = errors.New("peripheral: already started")

	// ErrNotStarted indicates an operation that needs a running
	// peripheral.
	ErrNotStarted = errors.New("peripheral: not started")

	// ErrInvalidConfig indicates a config that fails validation.
	ErrInvalidConfig = errors.New("peripheral: invalid configuration")

	// ErrAdvertisingDisabled indicates an advertising toggle on a
	// peripheral configured without an advertiser.
	ErrAdvertisingDisabled = errors.New("peripheral: advertising disabled")
)

// State is the peripheral lifecycle state.
type State uint8

const (
	// StateIdle - created but not started.
	StateIdle State = iota

	// StateStarting - starting up.
	StateStarting

	// StateRunning - listening and advertising.
	StateRunning

	// StateStopping - shutting down.
	StateStopping

	// StateStopped - stopped.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Peripheral.
type Config struct {
	// Identity is the device identity announced in hellos and mDNS.
	// Generated when zero.
	Identity uuid.UUID

	// DeviceName is the display name used as the mDNS instance name.
	DeviceName string

	// Address is the listen address (e.g. ":7650"). An empty address
	// selects the default port on all interfaces.
	Address string

	// SupervisionTimeout is the initial link supervision timeout
	// (default: transport.DefaultSupervisionTimeout). Connection
	// parameter updates from the central replace it.
	SupervisionTimeout time.Duration

	// Advertiser announces the service over mDNS. When nil one is
	// built at Start unless DisableAdvertising is set.
	Advertiser discovery.Advertiser

	// DisableAdvertising turns mDNS off entirely. The peripheral is
	// then reachable by address only.
	DisableAdvertising bool

	// Profile persists the device identity and, after a pairing
	// exchange completes, the bonded peer and its long term key.
	// Optional.
	Profile *persistence.ProfileStore

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// EventLog captures protocol events (optional).
	EventLog log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DeviceName:         "airspeed-device",
		SupervisionTimeout: transport.DefaultSupervisionTimeout,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.SupervisionTimeout < 0 {
		return ErrInvalidConfig
	}
	if !c.DisableAdvertising && c.DeviceName == "" {
		return ErrInvalidConfig
	}
	return nil
}
