// Command airspeed-probe runs a throughput measurement against an
// airspeed device.
//
// The probe discovers a device over mDNS (or dials one directly),
// negotiates the unit size, subscribes to the data characteristic and
// measures the sustained notification rate.
//
// Usage:
//
//	airspeed-probe [flags]
//
// Flags:
//
//	-addr string       Device address; skips discovery when set
//	-device string     Discover a device by display name
//	-duration value    Measurement duration (default 10s)
//	-mtu int           Receive MTU announced in the exchange (default 512)
//	-pair              Pair and seal the link before measuring
//	-verify            Verify the notification payload sequence
//	-json string       Write the report as JSON to this file ("-" for stdout)
//	-event-log string  Write protocol events to this CBOR log file
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-interactive       Run the probe console instead of a one-shot run
//	-version           Print the version and exit
//
// Examples:
//
//	# Measure the first discovered device for 30 seconds
//	airspeed-probe -duration 30s
//
//	# Dial a known device, verify the payload sequence, save the report
//	airspeed-probe -addr 192.168.1.40:7650 -verify -json report.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airspeed-wireless/airspeed-go/cmd/airspeed-probe/interactive"
	"github.com/airspeed-wireless/airspeed-go/pkg/central"
	"github.com/airspeed-wireless/airspeed-go/pkg/discovery"
	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/version"
)

// Config holds the probe configuration.
type Config struct {
	Address      string
	DeviceName   string
	Duration     time.Duration
	MTU          uint
	Pair         bool
	Verify       bool
	JSONPath     string
	EventLogPath string
	LogLevel     string
	Interactive  bool
	ShowVersion  bool
}

var config Config

func init() {
	flag.StringVar(&config.Address, "addr", "", "Device address; skips discovery when set")
	flag.StringVar(&config.DeviceName, "device", "", "Discover a device by display name")
	flag.DurationVar(&config.Duration, "duration", 10*time.Second, "Measurement duration")
	flag.UintVar(&config.MTU, "mtu", 512, "Receive MTU announced in the exchange")
	flag.BoolVar(&config.Pair, "pair", false, "Pair and seal the link before measuring")
	flag.BoolVar(&config.Verify, "verify", false, "Verify the notification payload sequence")
	flag.StringVar(&config.JSONPath, "json", "", `Write the report as JSON to this file ("-" for stdout)`)
	flag.StringVar(&config.EventLogPath, "event-log", "", "Write protocol events to this CBOR log file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Interactive, "interactive", false, "Run the probe console instead of a one-shot run")
	flag.BoolVar(&config.ShowVersion, "version", false, "Print the version and exit")
}

func main() {
	flag.Parse()

	if config.ShowVersion {
		fmt.Printf("airspeed-probe %s (protocol %s)\n", version.Library, version.Current)
		return
	}

	logger := newLogger(config.LogLevel)

	if err := run(logger); err != nil {
		logger.Error("probe failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	cfg := central.DefaultConfig()
	cfg.ReceiveMTU = uint16(config.MTU)
	cfg.Pair = config.Pair
	cfg.Logger = logger

	if config.EventLogPath != "" {
		eventLog, err := log.NewFileLogger(config.EventLogPath)
		if err != nil {
			return fmt.Errorf("opening event log: %w", err)
		}
		defer eventLog.Close()
		cfg.EventLog = eventLog
	}

	probe := central.New(cfg)
	defer probe.Close()

	if config.Interactive {
		console, err := interactive.New(probe, config.Address, config.DeviceName)
		if err != nil {
			return fmt.Errorf("starting console: %w", err)
		}
		console.Run(ctx, cancel)
		return nil
	}

	addr, err := resolveTarget(ctx, logger)
	if err != nil {
		return err
	}

	logger.Info("connecting", "addr", addr)
	if err := probe.Connect(ctx, addr); err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	logger.Info("connected",
		"device", probe.DeviceID(),
		"mtu", probe.MTU(),
		"unit", probe.EffectiveUnit())

	if err := probe.Subscribe(); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}

	report, err := probe.Measure(ctx, central.MeasureConfig{
		Duration:       config.Duration,
		VerifySequence: config.Verify,
	})
	if err != nil {
		return fmt.Errorf("measuring: %w", err)
	}

	fmt.Println(report)
	return writeReport(report)
}

// resolveTarget turns the flags into a dialable address, browsing
// mDNS when no address is given.
func resolveTarget(ctx context.Context, logger *slog.Logger) (string, error) {
	if config.Address != "" {
		return config.Address, nil
	}

	browser, err := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	if err != nil {
		return "", fmt.Errorf("starting discovery: %w", err)
	}
	defer browser.Stop()

	logger.Info("browsing for devices")

	var device *discovery.Device
	if config.DeviceName != "" {
		device, err = browser.FindByName(ctx, config.DeviceName)
	} else {
		device, err = browser.FindFirst(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("discovering device: %w", err)
	}

	logger.Info("device found",
		"name", device.DeviceName,
		"id", device.DeviceID,
		"addr", device.Addr())
	return device.Addr(), nil
}

// writeReport writes the JSON report when -json is set.
func writeReport(report *central.Report) error {
	if config.JSONPath == "" {
		return nil
	}

	data, err := report.JSON()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if config.JSONPath == "-" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(config.JSONPath, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
