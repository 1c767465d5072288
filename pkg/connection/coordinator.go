package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pomegranate-proto/pomegranate-go/pkg/log"
	"github.com/pomegranate-proto/pomegranate-go/pkg/secure"
	"github.com/pomegranate-proto/pomegranate-go/pkg/transport"
)

// Coordinator errors.
var (
	ErrAlreadyStarted = errors.New("coordinator already started")
)

// CoordinatorConfig configures a Pomegranate coordinator.
type CoordinatorConfig struct {
	// Address to listen on (e.g., ":7650" or "127.0.0.1:7650").
	Address string

	// Keys is the coordinator's long-lived RSA key pair. If nil, a
	// fresh pair is generated at construction; clients will then pin
	// the new key on first contact.
	Keys *secure.KeyPair

	// HandshakeTimeout bounds the wait for each client handshake frame
	// (default: secure.DefaultHandshakeTimeout).
	HandshakeTimeout time.Duration

	// MaxFrameSize is the maximum frame size accepted from clients
	// (default: transport.DefaultMaxFrameSize). Applied before the
	// handshake, it bounds what an unauthenticated peer can make the
	// reader allocate.
	MaxFrameSize uint64

	// Logger receives protocol events (optional).
	Logger log.Logger

	// OnConnect is called when a client completes its handshake.
	OnConnect func(conn *ClientSession)

	// OnDisconnect is called when a client session ends.
	OnDisconnect func(conn *ClientSession)

	// OnMessage is called when a message is received from a client.
	OnMessage func(conn *ClientSession, msg []byte)

	// OnError is called when a connection fails. conn is nil for
	// failures before the handshake completed.
	OnError func(conn *ClientSession, err error)
}

// Coordinator accepts client connections, runs the server side of the
// handshake on each, and maintains the set of established sessions.
type Coordinator struct {
	config   CoordinatorConfig
	keys     *secure.KeyPair
	listener net.Listener

	// Active sessions
	conns   map[*ClientSession]struct{}
	connsMu sync.RWMutex

	// State
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(config CoordinatorConfig) (*Coordinator, error) {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = secure.DefaultHandshakeTimeout
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = transport.DefaultMaxFrameSize
	}

	keys := config.Keys
	if keys == nil {
		var err error
		keys, err = secure.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
	}

	return &Coordinator{
		config: config,
		keys:   keys,
		conns:  make(map[*ClientSession]struct{}),
	}, nil
}

// Keys returns the coordinator's key pair.
func (c *Coordinator) Keys() *secure.KeyPair {
	return c.keys
}

// Start starts listening and accepting connections.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.running.Load() {
		return ErrAlreadyStarted
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", c.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	c.listener = listener

	c.running.Store(true)

	c.wg.Add(1)
	go c.acceptLoop()

	return nil
}

// Stop stops the coordinator and closes all sessions.
func (c *Coordinator) Stop() error {
	if !c.running.Load() {
		return nil
	}

	c.running.Store(false)
	c.cancel()

	if c.listener != nil {
		c.listener.Close()
	}

	c.connsMu.Lock()
	for conn := range c.conns {
		conn.Close()
	}
	c.connsMu.Unlock()

	c.wg.Wait()

	return nil
}

// Addr returns the coordinator's listen address.
func (c *Coordinator) Addr() net.Addr {
	if c.listener != nil {
		return c.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of established sessions.
func (c *Coordinator) ConnectionCount() int {
	c.connsMu.RLock()
	defer c.connsMu.RUnlock()
	return len(c.conns)
}

// Sessions returns a snapshot of the established sessions.
func (c *Coordinator) Sessions() []*ClientSession {
	c.connsMu.RLock()
	defer c.connsMu.RUnlock()

	sessions := make([]*ClientSession, 0, len(c.conns))
	for conn := range c.conns {
		sessions = append(sessions, conn)
	}
	return sessions
}

// Broadcast sends a message to every established session. Sessions whose
// send fails are closed; the first error is returned.
func (c *Coordinator) Broadcast(msg []byte) error {
	c.connsMu.RLock()
	conns := make([]*ClientSession, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	c.connsMu.RUnlock()

	var firstErr error
	for _, conn := range conns {
		if err := conn.Send(msg); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			conn.Close()
		}
	}
	return firstErr
}

// acceptLoop accepts incoming connections.
func (c *Coordinator) acceptLoop() {
	defer c.wg.Done()

	for c.running.Load() {
		conn, err := c.listener.Accept()
		if err != nil {
			if c.running.Load() && c.config.OnError != nil {
				c.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		c.wg.Add(1)
		go c.handleConnection(conn)
	}
}

// handleConnection runs the handshake and session for one client.
func (c *Coordinator) handleConnection(conn net.Conn) {
	defer c.wg.Done()

	connID := uuid.New().String()

	framer := transport.NewFramerWithMaxSize(conn, c.config.MaxFrameSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, connID)
	}

	sender, receiver, err := secure.ServerHandshake(framer, framer, c.keys, secure.HandshakeOptions{
		Timeout: c.config.HandshakeTimeout,
		Logger:  c.config.Logger,
		ConnID:  connID,
	})
	if err != nil {
		conn.Close()
		if c.config.OnError != nil {
			c.config.OnError(nil, fmt.Errorf("handshake failed: %w", err))
		}
		return
	}

	session := &ClientSession{
		conn:       conn,
		sender:     sender,
		receiver:   receiver,
		connID:     connID,
		remoteAddr: conn.RemoteAddr(),
		closeCh:    make(chan struct{}),
	}

	c.connsMu.Lock()
	c.conns[session] = struct{}{}
	c.connsMu.Unlock()

	if c.config.Logger != nil {
		c.config.Logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: connID,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			RemoteAddr:   session.remoteAddr.String(),
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntitySession,
				NewState: StateConnected.String(),
			},
		})
	}

	if c.config.OnConnect != nil {
		c.config.OnConnect(session)
	}

	c.readLoop(session)
}

// readLoop receives messages for one session until it dies.
func (c *Coordinator) readLoop(session *ClientSession) {
	defer func() {
		session.Close()

		c.connsMu.Lock()
		delete(c.conns, session)
		c.connsMu.Unlock()

		if c.config.OnDisconnect != nil {
			c.config.OnDisconnect(session)
		}
	}()

	for {
		msg, err := session.receiver.Receive()
		if err != nil {
			if c.running.Load() && !session.Closed() && c.config.OnError != nil {
				c.config.OnError(session, err)
			}
			return
		}

		if c.config.OnMessage != nil {
			c.config.OnMessage(session, msg)
		}
	}
}

// ClientSession is an established encrypted session with one client,
// as seen by the coordinator.
type ClientSession struct {
	conn       net.Conn
	sender     *secure.Sender
	receiver   *secure.Receiver
	connID     string
	remoteAddr net.Addr

	closeCh   chan struct{}
	closeOnce sync.Once
	sendMu    sync.Mutex
}

// ID returns the session's connection ID.
func (s *ClientSession) ID() string {
	return s.connID
}

// RemoteAddr returns the client's network address.
func (s *ClientSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

// Send encrypts and sends a message to the client.
// Safe for concurrent use.
func (s *ClientSession) Send(msg []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	select {
	case <-s.closeCh:
		return net.ErrClosed
	default:
	}

	return s.sender.Send(msg)
}

// Close tears the session down. The session is not reusable.
func (s *ClientSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		err = s.conn.Close()
	})
	return err
}

// Closed reports whether the session has been closed locally.
func (s *ClientSession) Closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}
