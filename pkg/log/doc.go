// Package log provides structured protocol logging for Pomegranate.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, secure channel,
// session). It is separate from operational logging (slog) - protocol
// capture provides a complete machine-readable event trace for debugging
// and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/pomegranate/client.plog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Secure: Handshake progress and channel faults (HandshakeEvent, ErrorEventData)
//   - Session: Connection lifecycle (StateChangeEvent)
//
// Security-relevant failures (server identity change, decryption failure)
// are recorded with SeveritySecurity so they can be filtered out of
// ordinary connection noise.
//
// # File Format
//
// FileLogger writes a stream of CBOR-encoded Event records with integer
// keys for compactness. Reader iterates a log file back, optionally
// filtered.
package log
