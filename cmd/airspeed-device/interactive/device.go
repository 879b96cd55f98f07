// Package interactive provides the interactive command-line interface
// for the airspeed device.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/airspeed-wireless/airspeed-go/pkg/peripheral"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Device handles interactive mode for airspeed-device.
type Device struct {
	p  *peripheral.Peripheral
	rl *readline.Instance
}

// New creates a new interactive device console.
func New(p *peripheral.Peripheral) (*Device, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "device> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Device{p: p, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the prompt.
func (d *Device) Stdout() io.Writer {
	return d.rl.Stdout()
}

// Run starts the interactive command loop.
func (d *Device) Run(ctx context.Context, cancel context.CancelFunc) {
	defer d.rl.Close()

	d.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := d.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(d.rl.Stdout(), "Exiting...")
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
			d.printHelp()

		case "status", "s":
			d.cmdStatus()

		case "gate", "g":
			d.cmdGate()

		case "stats":
			d.cmdStats()

		case "mtu":
			d.cmdMTU()

		case "advertise", "adv":
			d.cmdAdvertise(args)

		case "disconnect", "d":
			d.cmdDisconnect()

		case "quit", "exit", "q":
			fmt.Fprintln(d.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(d.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (d *Device) printHelp() {
	fmt.Fprintln(d.rl.Stdout(), `
Airspeed Device Commands:
  status             - Show device status
  gate               - Show the streaming gate flags
  stats              - Show stream counters
  mtu                - Show the negotiated unit size
  advertise on|off   - Toggle mDNS announcement
  disconnect         - Drop the attached probe

  help               - Show this help
  quit               - Exit device`)
}

// cmdStatus handles the status command.
func (d *Device) cmdStatus() {
	st := d.p.Status()
	w := d.rl.Stdout()

	fmt.Fprintf(w, "State:        %s\n", st.State)
	fmt.Fprintf(w, "Identity:     %s\n", d.p.Identity())
	if addr := d.p.Addr(); addr != nil {
		fmt.Fprintf(w, "Listening:    %s\n", addr)
	}
	fmt.Fprintf(w, "Advertising:  %v\n", st.Advertising)

	if !st.Connected {
		fmt.Fprintln(w, "Probe:        not connected")
		return
	}
	fmt.Fprintf(w, "Probe:        %s (%s)\n", st.CentralID, st.CentralAddr)
	fmt.Fprintf(w, "Unit size:    %d bytes (MTU %d)\n", st.UnitSize, st.UnitSize+wire.NotifyOverhead)
	fmt.Fprintf(w, "Streaming:    %v (subscribed=%v requested=%v)\n",
		st.StreamingActive, st.NotificationsEnabled, st.StreamingRequested)
	if st.HasParams {
		fmt.Fprintf(w, "Conn params:  interval %s, latency %d, timeout %s\n",
			st.Params.Interval, st.Params.Latency, st.Params.Timeout)
	}
}

// cmdGate handles the gate command.
func (d *Device) cmdGate() {
	st := d.p.Status()
	w := d.rl.Stdout()

	fmt.Fprintf(w, "Notifications enabled: %v\n", st.NotificationsEnabled)
	fmt.Fprintf(w, "Streaming requested:   %v\n", st.StreamingRequested)
	if st.StreamingActive {
		fmt.Fprintln(w, "Gate is OPEN: the pump is sending")
	} else {
		fmt.Fprintln(w, "Gate is CLOSED: the pump is parked")
	}
}

// cmdStats handles the stats command.
func (d *Device) cmdStats() {
	st := d.p.Status()
	w := d.rl.Stdout()

	fmt.Fprintf(w, "Blocks sent:    %d\n", st.Stats.Blocks)
	fmt.Fprintf(w, "Payload bytes:  %d\n", st.Stats.Bytes)
	fmt.Fprintf(w, "Send failures:  %d\n", st.Stats.SendFailures)
	fmt.Fprintf(w, "Counter:        %d\n", st.Counter)
}

// cmdMTU handles the mtu command.
func (d *Device) cmdMTU() {
	st := d.p.Status()
	w := d.rl.Stdout()

	if !st.Connected {
		fmt.Fprintf(w, "No link: unit size defaults to %d (MTU %d)\n",
			wire.DefaultMTU-wire.NotifyOverhead, wire.DefaultMTU)
		return
	}
	fmt.Fprintf(w, "Unit size %d bytes (MTU %d, overhead %d)\n",
		st.UnitSize, st.UnitSize+wire.NotifyOverhead, wire.NotifyOverhead)
}

// cmdAdvertise handles the advertise command.
func (d *Device) cmdAdvertise(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(d.rl.Stdout(), "Usage: advertise on|off")
		return
	}

	var on bool
	switch strings.ToLower(args[0]) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		fmt.Fprintln(d.rl.Stdout(), "Usage: advertise on|off")
		return
	}

	if err := d.p.SetAdvertising(on); err != nil {
		fmt.Fprintf(d.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if on && d.p.Connected() {
		fmt.Fprintln(d.rl.Stdout(), "Armed: advertising resumes when the probe disconnects")
		return
	}
	fmt.Fprintf(d.rl.Stdout(), "Advertising %s\n", args[0])
}

// cmdDisconnect handles the disconnect command.
func (d *Device) cmdDisconnect() {
	if err := d.p.DisconnectCentral(); err != nil {
		fmt.Fprintf(d.rl.Stdout(), "Error: %v\n", err)
		return
	}

	// Give the teardown a moment so the next status is accurate.
	time.Sleep(50 * time.Millisecond)
	fmt.Fprintln(d.rl.Stdout(), "Probe disconnected")
}
