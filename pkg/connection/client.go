package connection

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pomegranate-proto/pomegranate-go/pkg/log"
	"github.com/pomegranate-proto/pomegranate-go/pkg/secure"
	"github.com/pomegranate-proto/pomegranate-go/pkg/transport"
)

// Client errors.
var (
	ErrAddressRequired = errors.New("coordinator address is required")
	ErrAlreadyRunning  = errors.New("client already running")
)

// Client defaults.
const (
	// DefaultDialTimeout is the timeout for establishing the TCP connection.
	DefaultDialTimeout = 30 * time.Second
)

// State represents the client connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates the transport connection is being opened.
	StateConnecting

	// StateHandshaking indicates the key exchange is in progress.
	StateHandshaking

	// StateConnected indicates an established encrypted session.
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// validTransitions is the transition table of the outer state machine.
// Every state may fall back to DISCONNECTED on failure; forward progress
// follows the connect -> handshake -> session order strictly.
var validTransitions = map[State]map[State]bool{
	StateDisconnected: {StateConnecting: true},
	StateConnecting:   {StateHandshaking: true, StateDisconnected: true},
	StateHandshaking:  {StateConnected: true, StateDisconnected: true},
	StateConnected:    {StateDisconnected: true},
}

// ClientConfig configures a reconnecting Pomegranate client.
type ClientConfig struct {
	// CoordinatorAddress is the connection target (host:port). Required.
	CoordinatorAddress string

	// BypassIdentityCheck disables trust-on-first-use enforcement and
	// accepts any server key. Diagnostic use only.
	BypassIdentityCheck bool

	// HandshakeTimeout bounds the wait for each handshake frame
	// (default: secure.DefaultHandshakeTimeout).
	HandshakeTimeout time.Duration

	// DialTimeout is the timeout for the TCP dial (default: 30s).
	DialTimeout time.Duration

	// MaxFrameSize is the maximum frame size accepted from the server
	// (default: transport.DefaultMaxFrameSize).
	MaxFrameSize uint64

	// Backoff configures the reconnection delay schedule.
	Backoff BackoffConfig

	// Logger receives protocol events (optional).
	Logger log.Logger

	// OnMessage is called for each message received in a session.
	OnMessage func(msg []byte)

	// OnConnected is called when a session is established, with the
	// session's sender. The sender is valid until the next state change
	// to DISCONNECTED.
	OnConnected func(sender *secure.Sender)

	// OnStateChange is called when the connection state changes.
	OnStateChange func(oldState, newState State)

	// OnError is called when a connection attempt or session fails.
	OnError func(err error)
}

// Client is a persistent reconnecting Pomegranate client. It drives the
// connect / handshake / receive loop and retries forever with backoff;
// errors are reported through callbacks and log events, never returned
// to the application (except context cancellation).
type Client struct {
	config    ClientConfig
	validator *secure.Validator
	backoff   *Backoff

	state   atomic.Int32
	running atomic.Bool

	// connID identifies the current connection attempt in log events.
	// Only the Run flow writes it.
	connID string
}

// NewClient creates a new client. The identity validator is created
// empty: the first server key seen will be pinned for the lifetime of
// this client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.CoordinatorAddress == "" {
		return nil, ErrAddressRequired
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = secure.DefaultHandshakeTimeout
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = transport.DefaultMaxFrameSize
	}

	validator := secure.NewValidator()
	if config.BypassIdentityCheck {
		validator = secure.NewBypassValidator()
	}

	c := &Client{
		config:    config,
		validator: validator,
		backoff:   NewBackoffWithConfig(config.Backoff),
	}
	c.state.Store(int32(StateDisconnected))

	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Validator returns the client's identity validator, e.g. to Reset the
// pinned key after a known server key rotation.
func (c *Client) Validator() *secure.Validator {
	return c.validator
}

// BackoffAttempts returns the number of reconnection delays drawn since
// the last successful connection.
func (c *Client) BackoffAttempts() int {
	return c.backoff.Attempts()
}

// Run drives the connection loop until ctx is cancelled: connect,
// handshake, receive messages, and on any failure back off and retry.
// Run returns ctx.Err() on cancellation and must not be called
// concurrently with itself.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		err := c.attempt(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && c.config.OnError != nil {
			c.config.OnError(err)
		}

		delay := c.backoff.Next()
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// attempt performs one pass of the outer state machine: a single
// connection attempt and, if it succeeds, its whole session.
func (c *Client) attempt(ctx context.Context) error {
	c.connID = uuid.New().String()
	c.transition(StateConnecting, "")

	dialer := &net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.CoordinatorAddress)
	if err != nil {
		c.logError(log.LayerSession, err, "dial")
		c.transition(StateDisconnected, "dial failed")
		return err
	}

	framer := transport.NewFramerWithMaxSize(conn, c.config.MaxFrameSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, c.connID)
	}

	c.transition(StateHandshaking, "")
	sender, receiver, err := secure.ClientHandshake(framer, framer, c.validator, secure.HandshakeOptions{
		Timeout: c.config.HandshakeTimeout,
		Logger:  c.config.Logger,
		ConnID:  c.connID,
	})
	if err != nil {
		conn.Close()
		c.logError(log.LayerSecure, err, "handshake")
		c.transition(StateDisconnected, "handshake failed")
		return err
	}

	// Handshake success is the reset point of the backoff schedule
	c.backoff.Reset()
	c.transition(StateConnected, "")
	if c.config.OnConnected != nil {
		c.config.OnConnected(sender)
	}

	sess := &session{
		conn:     conn,
		receiver: receiver,
	}
	err = sess.run(ctx, c.config.OnMessage)

	conn.Close()
	if ctx.Err() == nil {
		c.logError(log.LayerSession, err, "session")
	}
	c.transition(StateDisconnected, "session ended")
	return err
}

// transition moves the outer state machine to a new state, consulting
// the transition table, and notifies observers.
func (c *Client) transition(newState State, reason string) {
	oldState := State(c.state.Load())
	if !validTransitions[oldState][newState] {
		// Programming error; keep the machine consistent anyway.
		c.logError(log.LayerSession,
			errors.New("invalid state transition "+oldState.String()+" -> "+newState.String()), "")
	}
	c.state.Store(int32(newState))

	if c.config.OnStateChange != nil {
		c.config.OnStateChange(oldState, newState)
	}
	if c.config.Logger != nil {
		c.config.Logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.connID,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: oldState.String(),
				NewState: newState.String(),
				Reason:   reason,
			},
		})
	}
}

// logError emits an error event. Identity changes and AEAD failures are
// security-relevant and recorded at elevated severity.
func (c *Client) logError(layer log.Layer, err error, context string) {
	if c.config.Logger == nil || err == nil {
		return
	}

	severity := log.SeverityError
	if errors.Is(err, secure.ErrIdentityChanged) || errors.Is(err, secure.ErrDecryptFailed) {
		severity = log.SeveritySecurity
	}

	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        layer,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:    layer,
			Severity: severity,
			Message:  err.Error(),
			Context:  context,
		},
	})
}

// session is the inner level of the state machine: one established
// encrypted connection, alive until the first receive error or context
// cancellation.
type session struct {
	conn     net.Conn
	receiver *secure.Receiver
}

// run delivers received messages to the application until the session
// dies. Closing the connection is the only way to interrupt a blocked
// receive, so a watcher goroutine closes it on context cancellation.
func (s *session) run(ctx context.Context, onMessage func([]byte)) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		msg, err := s.receiver.Receive()
		if err != nil {
			return err
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}
