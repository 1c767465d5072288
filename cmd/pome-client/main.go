// Command pome-client is a reference Pomegranate cluster client.
//
// It maintains a persistent encrypted connection to a coordinator,
// reconnecting forever with backoff, and prints every message the
// coordinator sends.
//
// Usage:
//
//	pome-client [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-addr string          Coordinator address (host:port)
//	-bypass-identity      Accept any coordinator key (diagnostic use only)
//	-protocol-log string  Write protocol events to a CBOR log file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Flags override values from the configuration file.
//
// Examples:
//
//	# Connect to a local coordinator
//	pome-client -addr 127.0.0.1:7650
//
//	# Connect using a config file, capturing protocol events
//	pome-client -config /etc/pome/client.yaml -protocol-log client.plog
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pomegranate-proto/pomegranate-go/pkg/config"
	"github.com/pomegranate-proto/pomegranate-go/pkg/connection"
	"github.com/pomegranate-proto/pomegranate-go/pkg/log"
)

var (
	configFile     string
	addr           string
	bypassIdentity bool
	protocolLog    string
	logLevel       string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&addr, "addr", "", "Coordinator address (host:port)")
	flag.BoolVar(&bypassIdentity, "bypass-identity", false, "Accept any coordinator key (diagnostic use only)")
	flag.StringVar(&protocolLog, "protocol-log", "", "Write protocol events to a CBOR log file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger := setupLogging(logLevel)

	clientConfig, err := buildConfig(logger)
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	client, err := connection.NewClient(clientConfig)
	if err != nil {
		stdlog.Fatalf("Failed to create client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting", "addr", clientConfig.CoordinatorAddress)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		stdlog.Fatalf("Client failed: %v", err)
	}
	logger.Info("shutdown complete")
}

// buildConfig merges the config file (if any) with command-line flags
// and wires up logging and message handling.
func buildConfig(logger *slog.Logger) (connection.ClientConfig, error) {
	var clientConfig connection.ClientConfig

	if configFile != "" {
		fileConfig, err := config.LoadClient(configFile)
		if err != nil {
			return connection.ClientConfig{}, err
		}
		clientConfig = fileConfig.ClientConfig()
		if protocolLog == "" {
			protocolLog = fileConfig.ProtocolLog
		}
	}

	// Flags take precedence over the file
	if addr != "" {
		clientConfig.CoordinatorAddress = addr
	}
	if bypassIdentity {
		clientConfig.BypassIdentityCheck = true
	}
	if clientConfig.CoordinatorAddress == "" {
		return connection.ClientConfig{}, connection.ErrAddressRequired
	}

	protoLogger, err := buildProtocolLogger(logger)
	if err != nil {
		return connection.ClientConfig{}, err
	}
	clientConfig.Logger = protoLogger

	clientConfig.OnMessage = func(msg []byte) {
		fmt.Printf("%s\n", msg)
	}
	clientConfig.OnStateChange = func(oldState, newState connection.State) {
		logger.Info("connection state changed",
			"old", oldState.String(), "new", newState.String())
	}
	clientConfig.OnError = func(err error) {
		logger.Warn("connection attempt failed", "err", err)
	}

	return clientConfig, nil
}

// buildProtocolLogger assembles the protocol event logger: a CBOR file
// logger when -protocol-log is set, always mirrored to slog at debug.
func buildProtocolLogger(logger *slog.Logger) (log.Logger, error) {
	adapter := log.NewSlogAdapter(logger)
	if protocolLog == "" {
		return adapter, nil
	}

	fileLogger, err := log.NewFileLogger(protocolLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open protocol log: %w", err)
	}
	return log.NewMultiLogger(fileLogger, adapter), nil
}

func setupLogging(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		stdlog.Fatalf("Unknown log level: %q", level)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger
}
