// Command airspeed-device runs a throughput test peripheral.
//
// The device listens for a probe, advertises itself over mDNS, and
// streams notifications at the maximum rate the link sustains while
// streaming is enabled.
//
// Usage:
//
//	airspeed-device [flags]
//
// Flags:
//
//	-addr string       Listen address (default ":7650")
//	-name string       Device display name used for discovery
//	-profile string    Device profile path (identity and bond persist here)
//	-event-log string  Write protocol events to this CBOR log file
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-no-advertise      Disable mDNS announcement
//	-interactive       Run the device console (default true)
//	-version           Print the version and exit
//
// Examples:
//
//	# Start a device with a persistent identity
//	airspeed-device -name bench-device -profile /var/lib/airspeed/device.json
//
//	# Headless device with an event log for airspeed-log
//	airspeed-device -interactive=false -event-log device.cborlog
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

	"github.com/airspeed-wireless/airspeed-go/cmd/airspeed-device/interactive"
	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/peripheral"
	"github.com/airspeed-wireless/airspeed-go/pkg/persistence"
	"github.com/airspeed-wireless/airspeed-go/pkg/version"
)

// Config holds the device configuration.
type Config struct {
	Address            string
	DeviceName         string
	ProfilePath        string
	EventLogPath       string
	LogLevel           string
	NoAdvertise        bool
	SupervisionTimeout time.Duration
	Interactive        bool
	ShowVersion        bool
}

var config Config

func init() {
	flag.StringVar(&config.Address, "addr", ":7650", "Listen address")
	flag.StringVar(&config.DeviceName, "name", "airspeed-device", "Device display name used for discovery")
	flag.StringVar(&config.ProfilePath, "profile", "", "Device profile path (identity and bond persist here)")
	flag.StringVar(&config.EventLogPath, "event-log", "", "Write protocol events to this CBOR log file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.NoAdvertise, "no-advertise", false, "Disable mDNS announcement")
	flag.DurationVar(&config.SupervisionTimeout, "supervision-timeout", 0, "Initial link supervision timeout (0 = default)")
	flag.BoolVar(&config.Interactive, "interactive", true, "Run the device console")
	flag.BoolVar(&config.ShowVersion, "version", false, "Print the version and exit")
}

func main() {
	flag.Parse()

	if config.ShowVersion {
		fmt.Printf("airspeed-device %s (protocol %s)\n", version.Library, version.Current)
		return
	}

	logger := newLogger(config.LogLevel)

	if err := run(logger); err != nil {
		logger.Error("device failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := peripheral.DefaultConfig()
	cfg.DeviceName = config.DeviceName
	cfg.Address = config.Address
	cfg.DisableAdvertising = config.NoAdvertise
	cfg.Logger = logger
	if config.SupervisionTimeout > 0 {
		cfg.SupervisionTimeout = config.SupervisionTimeout
	}
	if config.ProfilePath != "" {
		cfg.Profile = persistence.NewProfileStore(config.ProfilePath)
	}

	var eventLog *log.FileLogger
	if config.EventLogPath != "" {
		var err error
		eventLog, err = log.NewFileLogger(config.EventLogPath)
		if err != nil {
			return fmt.Errorf("opening event log: %w", err)
		}
		defer eventLog.Close()
		cfg.EventLog = eventLog
	}

	p, err := peripheral.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := p.Shutdown(); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}()

	logger.Info("device started",
		"identity", p.Identity(),
		"addr", p.Addr(),
		"advertising", p.Advertising())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if config.Interactive {
		return runConsole(ctx, cancel, p)
	}

	<-ctx.Done()
	return nil
}

// runConsole drives the readline console until quit or shutdown.
func runConsole(ctx context.Context, cancel context.CancelFunc, p *peripheral.Peripheral) error {
	console, err := interactive.New(p)
	if err != nil {
		return fmt.Errorf("starting console: %w", err)
	}
	console.Run(ctx, cancel)
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
