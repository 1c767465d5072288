package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pomegranate-proto/pomegranate-go/pkg/connection"
)

// Config errors.
var (
	ErrAddressRequired = errors.New("coordinator_address is required")
)

// Duration is a time.Duration that unmarshals from YAML duration
// strings such as "1s" or "250ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Backoff holds the reconnection schedule parameters.
type Backoff struct {
	// FlatCount is the number of attempts per delay step; 0 disables doubling.
	FlatCount int `yaml:"flat_count"`

	// InitialDelay is the delay after the first failure.
	InitialDelay Duration `yaml:"initial_delay"`

	// MaxDelay saturates the schedule; 0 means no cap.
	MaxDelay Duration `yaml:"max_delay"`
}

// Client is the YAML configuration of a Pomegranate client.
type Client struct {
	// CoordinatorAddress is the connection target (host:port). Required.
	CoordinatorAddress string `yaml:"coordinator_address"`

	// BypassIdentityCheck disables trust-on-first-use enforcement.
	// Diagnostic use only.
	BypassIdentityCheck bool `yaml:"bypass_identity_check"`

	// HandshakeTimeout bounds the wait for each handshake frame.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`

	// DialTimeout bounds the TCP dial.
	DialTimeout Duration `yaml:"dial_timeout"`

	// MaxFrameSize is the maximum accepted frame size in bytes.
	MaxFrameSize uint64 `yaml:"max_frame_size"`

	// Backoff configures the reconnection schedule.
	Backoff Backoff `yaml:"backoff"`

	// ProtocolLog is the path of the CBOR protocol event log (optional).
	ProtocolLog string `yaml:"protocol_log"`
}

// ParseClient parses a client configuration from YAML bytes.
func ParseClient(data []byte) (*Client, error) {
	var c Client
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadClient loads a client configuration from a file.
func LoadClient(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseClient(data)
}

// Validate checks required fields.
func (c *Client) Validate() error {
	if c.CoordinatorAddress == "" {
		return ErrAddressRequired
	}
	return nil
}

// ClientConfig converts the file configuration into the connection
// layer's config. Callbacks and loggers are left for the caller to fill.
func (c *Client) ClientConfig() connection.ClientConfig {
	return connection.ClientConfig{
		CoordinatorAddress:  c.CoordinatorAddress,
		BypassIdentityCheck: c.BypassIdentityCheck,
		HandshakeTimeout:    time.Duration(c.HandshakeTimeout),
		DialTimeout:         time.Duration(c.DialTimeout),
		MaxFrameSize:        c.MaxFrameSize,
		Backoff: connection.BackoffConfig{
			FlatCount:    c.Backoff.FlatCount,
			InitialDelay: time.Duration(c.Backoff.InitialDelay),
			MaxDelay:     time.Duration(c.Backoff.MaxDelay),
		},
	}
}

// Coordinator is the YAML configuration of a Pomegranate coordinator.
type Coordinator struct {
	// Address to listen on.
	Address string `yaml:"address"`

	// HandshakeTimeout bounds the wait for each client handshake frame.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`

	// MaxFrameSize is the maximum accepted frame size in bytes.
	MaxFrameSize uint64 `yaml:"max_frame_size"`

	// ProtocolLog is the path of the CBOR protocol event log (optional).
	ProtocolLog string `yaml:"protocol_log"`
}

// ParseCoordinator parses a coordinator configuration from YAML bytes.
func ParseCoordinator(data []byte) (*Coordinator, error) {
	var c Coordinator
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &c, nil
}

// LoadCoordinator loads a coordinator configuration from a file.
func LoadCoordinator(path string) (*Coordinator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseCoordinator(data)
}

// CoordinatorConfig converts the file configuration into the connection
// layer's config. Keys, callbacks and loggers are left for the caller.
func (c *Coordinator) CoordinatorConfig() connection.CoordinatorConfig {
	return connection.CoordinatorConfig{
		Address:          c.Address,
		HandshakeTimeout: time.Duration(c.HandshakeTimeout),
		MaxFrameSize:     c.MaxFrameSize,
	}
}
