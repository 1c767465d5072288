// Command pome-coordinator is a reference Pomegranate coordinator.
//
// It listens for client connections, performs the key exchange with
// each, and maintains the set of established encrypted sessions. In
// interactive mode it offers a console for broadcasting messages and
// inspecting connected clients.
//
// Usage:
//
//	pome-coordinator [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-addr string          Listen address (default ":7650")
//	-interactive          Enable the interactive console
//	-protocol-log string  Write protocol events to a CBOR log file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Start a coordinator with the interactive console
//	pome-coordinator -addr 127.0.0.1:7650 -interactive
//
//	# Start headless, capturing protocol events
//	pome-coordinator -config /etc/pome/coordinator.yaml -protocol-log coordinator.plog
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

	"github.com/pomegranate-proto/pomegranate-go/cmd/pome-coordinator/interactive"
	"github.com/pomegranate-proto/pomegranate-go/pkg/config"
	"github.com/pomegranate-proto/pomegranate-go/pkg/connection"
	"github.com/pomegranate-proto/pomegranate-go/pkg/log"
	"github.com/pomegranate-proto/pomegranate-go/pkg/secure"
)

var (
	configFile    string
	addr          string
	interactiveUI bool
	protocolLog   string
	logLevel      string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&addr, "addr", "", "Listen address (default \":7650\")")
	flag.BoolVar(&interactiveUI, "interactive", false, "Enable the interactive console")
	flag.StringVar(&protocolLog, "protocol-log", "", "Write protocol events to a CBOR log file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger := setupLogging(logLevel)

	coordConfig, err := buildConfig(logger)
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	// The key pair is the coordinator's identity; clients pin it on
	// first contact.
	keys, err := secure.GenerateKeyPair()
	if err != nil {
		stdlog.Fatalf("Failed to generate key pair: %v", err)
	}
	coordConfig.Keys = keys
	logger.Info("coordinator identity",
		"fingerprint", secure.Fingerprint(secure.MarshalPublicKey(keys.Public)))

	coord, err := connection.NewCoordinator(coordConfig)
	if err != nil {
		stdlog.Fatalf("Failed to create coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coord.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start coordinator: %v", err)
	}
	logger.Info("listening", "addr", coord.Addr().String())

	if interactiveUI {
		console, err := interactive.New(coord)
		if err != nil {
			stdlog.Fatalf("Failed to start console: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		stdlog.SetOutput(console.Stdout())
		go console.Run(ctx, cancel)
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
		// Cancelled by the console's quit command
	}

	logger.Info("shutting down")
	cancel()

	if err := coord.Stop(); err != nil {
		logger.Error("error stopping coordinator", "err", err)
	}
}

// buildConfig merges the config file (if any) with command-line flags
// and wires up logging and session callbacks.
func buildConfig(logger *slog.Logger) (connection.CoordinatorConfig, error) {
	var coordConfig connection.CoordinatorConfig

	if configFile != "" {
		fileConfig, err := config.LoadCoordinator(configFile)
		if err != nil {
			return connection.CoordinatorConfig{}, err
		}
		coordConfig = fileConfig.CoordinatorConfig()
		if protocolLog == "" {
			protocolLog = fileConfig.ProtocolLog
		}
	}

	// Flags take precedence over the file
	if addr != "" {
		coordConfig.Address = addr
	}
	if coordConfig.Address == "" {
		coordConfig.Address = ":7650"
	}

	protoLogger, err := buildProtocolLogger(logger)
	if err != nil {
		return connection.CoordinatorConfig{}, err
	}
	coordConfig.Logger = protoLogger

	coordConfig.OnConnect = func(conn *connection.ClientSession) {
		logger.Info("client connected", "id", conn.ID(), "addr", conn.RemoteAddr().String())
	}
	coordConfig.OnDisconnect = func(conn *connection.ClientSession) {
		logger.Info("client disconnected", "id", conn.ID())
	}
	coordConfig.OnMessage = func(conn *connection.ClientSession, msg []byte) {
		logger.Info("message received", "id", conn.ID(), "len", len(msg))
		fmt.Printf("[%s] %s\n", conn.ID(), msg)
	}
	coordConfig.OnError = func(conn *connection.ClientSession, err error) {
		if conn != nil {
			logger.Warn("session error", "id", conn.ID(), "err", err)
			return
		}
		logger.Warn("connection error", "err", err)
	}

	return coordConfig, nil
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
