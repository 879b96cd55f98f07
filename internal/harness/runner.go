package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/central"
	"github.com/airspeed-wireless/airspeed-go/pkg/peripheral"
	"github.com/airspeed-wireless/airspeed-go/pkg/transport"
)

// StepError reports which step of a scenario failed.
type StepError struct {
	// ScenarioID identifies the scenario.
	ScenarioID string

	// Index is the zero-based step index.
	Index int

	// Action is the step action that failed.
	Action string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d (%s): %v", e.ScenarioID, e.Index, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// DeviceName is the peripheral name (default: "harness-device").
	DeviceName string

	// StreamWindow is the default observation window for
	// expect_streaming steps (default: 500ms).
	StreamWindow time.Duration

	// QuietWindow is the default observation window for expect_quiet
	// steps (default: 300ms).
	QuietWindow time.Duration

	// Logger is the optional logger for step-by-step output.
	Logger *slog.Logger
}

// Runner executes scenarios against an in-process peripheral and
// central pair connected over loopback. Each Run starts a fresh pair
// and tears both down before returning.
type Runner struct {
	config RunnerConfig
}

// NewRunner creates a runner.
func NewRunner(config RunnerConfig) *Runner {
	if config.DeviceName == "" {
		config.DeviceName = "harness-device"
	}
	if config.StreamWindow <= 0 {
		config.StreamWindow = 500 * time.Millisecond
	}
	if config.QuietWindow <= 0 {
		config.QuietWindow = 300 * time.Millisecond
	}
	return &Runner{config: config}
}

// Run executes a scenario. The first failing step aborts the run.
func (r *Runner) Run(ctx context.Context, sc *Scenario) error {
	pcfg := peripheral.DefaultConfig()
	pcfg.Address = "127.0.0.1:0"
	pcfg.DeviceName = r.config.DeviceName
	pcfg.DisableAdvertising = true

	p, err := peripheral.New(pcfg)
	if err != nil {
		return fmt.Errorf("harness: device setup failed: %w", err)
	}
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("harness: device start failed: %w", err)
	}
	defer p.Shutdown()

	ccfg := central.DefaultConfig()
	ccfg.ReceiveMTU = 0
	ccfg.ConnectTimeout = 5 * time.Second
	ccfg.RequestTimeout = 2 * time.Second
	probe := central.New(ccfg)
	defer probe.Close()

	session := &session{
		runner: r,
		probe:  probe,
		addr:   p.Addr().String(),
	}

	for i, step := range sc.Steps {
		if r.config.Logger != nil {
			r.config.Logger.Info("step", "scenario", sc.ID, "index", i, "action", step.Action)
		}
		if err := session.run(ctx, &step); err != nil {
			return &StepError{ScenarioID: sc.ID, Index: i, Action: step.Action, Err: err}
		}
	}
	return nil
}

// session holds per-run probe state.
type session struct {
	runner *Runner
	probe  *central.Central
	addr   string
}

func (s *session) run(ctx context.Context, step *Step) error {
	switch step.Action {
	case ActionConnect:
		return s.connect(ctx)
	case ActionDisconnect:
		return s.probe.Disconnect()
	case ActionReconnect:
		_ = s.probe.Disconnect()
		return s.connect(ctx)
	case ActionSubscribe:
		return s.probe.Subscribe()
	case ActionUnsubscribe:
		return s.probe.Unsubscribe()
	case ActionControl:
		payload, err := hex.DecodeString(step.Payload)
		if err != nil {
			return fmt.Errorf("invalid payload %q: %w", step.Payload, err)
		}
		return s.probe.WriteControl(payload)
	case ActionSetMTU:
		_, err := s.probe.ExchangeMTU(step.MTU)
		return err
	case ActionExpectStreaming:
		return s.expectStreaming(ctx, step)
	case ActionExpectQuiet:
		return s.expectQuiet(ctx, step)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// connect dials the peripheral, retrying briefly while it still holds
// the previous link. A disconnect releases the server side
// asynchronously, so an immediate reconnect can race it.
func (s *session) connect(ctx context.Context) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := s.probe.Connect(ctx, s.addr)
		if err == nil {
			return nil
		}
		if !errors.Is(err, transport.ErrLinkBusy) || time.Now().After(deadline) {
			return err
		}
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// expectStreaming waits one observation window and checks that at
// least step.Min notifications arrived in it.
func (s *session) expectStreaming(ctx context.Context, step *Step) error {
	window, err := step.WindowDuration(s.runner.config.StreamWindow)
	if err != nil {
		return err
	}
	min := step.Min
	if min <= 0 {
		min = 1
	}

	baseline := s.probe.Notifications()
	if err := sleep(ctx, window); err != nil {
		return err
	}
	got := int(s.probe.Notifications() - baseline)
	if got < min {
		return fmt.Errorf("got %d notifications in %s, want at least %d", got, window, min)
	}
	return nil
}

// expectQuiet waits one observation window and checks that no
// notifications arrived in it.
func (s *session) expectQuiet(ctx context.Context, step *Step) error {
	window, err := step.WindowDuration(s.runner.config.QuietWindow)
	if err != nil {
		return err
	}

	baseline := s.probe.Notifications()
	if err := sleep(ctx, window); err != nil {
		return err
	}
	if got := s.probe.Notifications() - baseline; got > 0 {
		return fmt.Errorf("got %d notifications in %s, want none", got, window)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
