// Package log provides structured protocol logging for Airspeed.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (link frames, ATT PDUs,
// signaling, state changes, stream statistics). It is separate from
// operational logging (slog) - protocol capture provides a complete
// machine-readable trace of a throughput run for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/airspeed/device.aslog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/airspeed/device.aslog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Link: raw L2CAP frames (FrameEvent)
//   - ATT: decoded PDUs (PacketEvent)
//   - Service: link/subscription/stream state (StateChangeEvent),
//     control-point commands (ControlEvent), pump statistics (StreamEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with .aslog extension. The airspeed-log CLI
// tool provides viewing, filtering, throughput statistics, and JSON export.
package log
