// Package interactive provides the interactive command-line interface
// for the airspeed probe.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/airspeed-wireless/airspeed-go/pkg/central"
	"github.com/airspeed-wireless/airspeed-go/pkg/connection"
	"github.com/airspeed-wireless/airspeed-go/pkg/discovery"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Probe handles interactive mode for airspeed-probe.
type Probe struct {
	c   *central.Central
	mgr *connection.Manager
	rl  *readline.Instance

	// Defaults from the command line, used when connect is called
	// without an address.
	address    string
	deviceName string

	// Address of the last connect attempt; the redial loop dials it
	// again when the link drops.
	mu       sync.Mutex
	lastAddr string

	lastReport *central.Report
}

// New creates a new interactive probe console.
func New(c *central.Central, address, deviceName string) (*Probe, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "probe> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	p := &Probe{
		c:          c,
		rl:         rl,
		address:    address,
		deviceName: deviceName,
	}

	p.mgr = connection.NewManager(func(ctx context.Context) error {
		p.mu.Lock()
		addr := p.lastAddr
		p.mu.Unlock()
		return c.Connect(ctx, addr)
	})
	p.mgr.OnReconnecting(func(attempt int, delay time.Duration) {
		fmt.Fprintf(rl.Stdout(), "Redial attempt %d in %s...\n", attempt, delay)
	})
	p.mgr.OnConnected(func() {
		fmt.Fprintf(rl.Stdout(), "Connected to %s (MTU %d, unit %d bytes)\n",
			c.DeviceID(), c.MTU(), c.EffectiveUnit())
	})
	p.mgr.StartReconnectLoop()

	c.OnDisconnect(func(reason error) {
		fmt.Fprintf(rl.Stdout(), "\nLink lost: %v\n", reason)
		p.mgr.LinkLost()
	})

	return p, nil
}

// Stdout returns a writer that coordinates with the readline input.
func (p *Probe) Stdout() io.Writer {
	return p.rl.Stdout()
}

// Run starts the interactive command loop.
func (p *Probe) Run(ctx context.Context, cancel context.CancelFunc) {
	defer p.rl.Close()
	defer p.mgr.Close()

	p.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := p.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			p.printHelp()

		case "connect", "c":
			p.cmdConnect(ctx, args)

		case "disconnect":
			p.cmdDisconnect()

		case "auto":
			p.cmdAuto(args)

		case "status", "s":
			p.cmdStatus()

		case "subscribe", "sub":
			p.cmdSubscribe()

		case "unsubscribe", "unsub":
			p.cmdUnsubscribe()

		case "start":
			p.cmdStart()

		case "stop":
			p.cmdStop()

		case "measure", "m":
			p.cmdMeasure(ctx, args)

		case "params":
			p.cmdParams(args)

		case "report", "r":
			p.cmdReport()

		case "quit", "exit", "q":
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(p.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (p *Probe) printHelp() {
	fmt.Fprintln(p.rl.Stdout(), `
Airspeed Probe Commands:
  connect [addr]            - Connect to a device (discovers one when no addr)
  disconnect                - Close the link
  auto [on|off]             - Toggle automatic redial on link loss
  status                    - Show link status

  subscribe                 - Enable data notifications
  unsubscribe               - Disable data notifications
  start                     - Request streaming
  stop                      - Stop streaming
  measure <duration>        - Run a timed measurement (e.g. measure 10s)
  params <interval> <timeout> - Request connection parameters (e.g. params 30ms 5s)
  report                    - Show the last measurement report

  help                      - Show this help
  quit                      - Exit probe`)
}

// cmdConnect handles the connect command.
func (p *Probe) cmdConnect(ctx context.Context, args []string) {
	addr := p.address
	if len(args) > 0 {
		addr = args[0]
	}

	if addr == "" {
		found, err := p.discover(ctx)
		if err != nil {
			fmt.Fprintf(p.rl.Stdout(), "Discovery failed: %v\n", err)
			return
		}
		addr = found
	}

	p.mu.Lock()
	p.lastAddr = addr
	p.mu.Unlock()

	fmt.Fprintf(p.rl.Stdout(), "Connecting to %s...\n", addr)
	if err := p.mgr.Connect(ctx); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
	}
}

// discover browses mDNS for a device, honoring the -device name.
func (p *Probe) discover(ctx context.Context) (string, error) {
	browser, err := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	if err != nil {
		return "", err
	}
	defer browser.Stop()

	fmt.Fprintln(p.rl.Stdout(), "Browsing for devices...")

	var device *discovery.Device
	if p.deviceName != "" {
		device, err = browser.FindByName(ctx, p.deviceName)
	} else {
		device, err = browser.FindFirst(ctx)
	}
	if err != nil {
		return "", err
	}

	fmt.Fprintf(p.rl.Stdout(), "Found %s (%s) at %s\n",
		device.DeviceName, device.DeviceID, device.Addr())
	return device.Addr(), nil
}

// cmdDisconnect handles the disconnect command. The manager is told
// first so the loss is not chased as an unexpected one.
func (p *Probe) cmdDisconnect() {
	p.mgr.Disconnect()
	if err := p.c.Disconnect(); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.rl.Stdout(), "Disconnected")
}

// cmdAuto handles the auto command.
func (p *Probe) cmdAuto(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(p.rl.Stdout(), "Usage: auto on|off")
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		p.mgr.SetAutoReconnect(true)
		fmt.Fprintln(p.rl.Stdout(), "Automatic redial enabled")
	case "off":
		p.mgr.SetAutoReconnect(false)
		fmt.Fprintln(p.rl.Stdout(), "Automatic redial disabled")
	default:
		fmt.Fprintln(p.rl.Stdout(), "Usage: auto on|off")
	}
}

// cmdStatus handles the status command.
func (p *Probe) cmdStatus() {
	w := p.rl.Stdout()

	fmt.Fprintf(w, "Link:           %s\n", p.mgr.State())
	if !p.c.Connected() {
		return
	}

	fmt.Fprintf(w, "Device:         %s\n", p.c.DeviceID())
	fmt.Fprintf(w, "MTU:            %d (unit %d bytes)\n", p.c.MTU(), p.c.EffectiveUnit())
	fmt.Fprintf(w, "Subscribed:     %v\n", p.c.Subscribed())
	fmt.Fprintf(w, "Notifications:  %d (%d bytes)\n",
		p.c.Notifications(), p.c.NotificationBytes())
}

// cmdSubscribe handles the subscribe command.
func (p *Probe) cmdSubscribe() {
	if err := p.c.Subscribe(); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.rl.Stdout(), "Subscribed")
}

// cmdUnsubscribe handles the unsubscribe command.
func (p *Probe) cmdUnsubscribe() {
	if err := p.c.Unsubscribe(); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.rl.Stdout(), "Unsubscribed")
}

// cmdStart handles the start command.
func (p *Probe) cmdStart() {
	if err := p.c.StartStream(); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.rl.Stdout(), "Streaming requested")
}

// cmdStop handles the stop command.
func (p *Probe) cmdStop() {
	if err := p.c.StopStream(); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(p.rl.Stdout(), "Streaming stopped")
}

// cmdMeasure handles the measure command.
func (p *Probe) cmdMeasure(ctx context.Context, args []string) {
	duration := 10 * time.Second
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(p.rl.Stdout(), "Invalid duration %q: %v\n", args[0], err)
			return
		}
		duration = d
	}

	fmt.Fprintf(p.rl.Stdout(), "Measuring for %s...\n", duration)
	report, err := p.c.Measure(ctx, central.MeasureConfig{
		Duration:       duration,
		VerifySequence: true,
	})
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}

	p.lastReport = report
	fmt.Fprintln(p.rl.Stdout(), report)
}

// cmdParams handles the params command.
func (p *Probe) cmdParams(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(p.rl.Stdout(), "Usage: params <interval> <timeout>")
		fmt.Fprintln(p.rl.Stdout(), "  Example: params 30ms 5s")
		return
	}

	interval, err := time.ParseDuration(args[0])
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Invalid interval %q: %v\n", args[0], err)
		return
	}
	timeout, err := time.ParseDuration(args[1])
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Invalid timeout %q: %v\n", args[1], err)
		return
	}

	// Units per the signaling PDU: interval in 1.25 ms, timeout in
	// 10 ms steps.
	units := uint16(interval / (1250 * time.Microsecond))
	params := wire.ConnParams{
		IntervalMin: units,
		IntervalMax: units,
		Latency:     0,
		Timeout:     uint16(timeout / (10 * time.Millisecond)),
	}

	if err := p.c.RequestConnParams(params); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(p.rl.Stdout(), "Parameters accepted (interval %s, timeout %s)\n",
		params.IntervalMaxDuration(), params.TimeoutDuration())
}

// cmdReport handles the report command.
func (p *Probe) cmdReport() {
	if p.lastReport == nil {
		fmt.Fprintln(p.rl.Stdout(), "No measurement yet (run 'measure' first)")
		return
	}
	fmt.Fprintln(p.rl.Stdout(), p.lastReport)
}
