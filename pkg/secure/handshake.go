package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/pomegranate-proto/pomegranate-go/pkg/log"
	"github.com/pomegranate-proto/pomegranate-go/pkg/transport"
)

// DefaultHandshakeTimeout bounds the wait for each handshake frame when
// no timeout is configured.
const DefaultHandshakeTimeout = 5 * time.Second

// Handshake errors.
var (
	// ErrHandshakeTimeout indicates the peer did not produce its
	// handshake frame within the configured bound.
	ErrHandshakeTimeout = errors.New("handshake timeout")
)

// HandshakeOptions configures one handshake attempt.
type HandshakeOptions struct {
	// Timeout bounds the wait for each handshake frame
	// (default: DefaultHandshakeTimeout).
	Timeout time.Duration

	// Logger receives handshake protocol events (optional).
	Logger log.Logger

	// ConnID identifies the connection in log events.
	ConnID string
}

func (o *HandshakeOptions) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultHandshakeTimeout
	}
}

// ClientHandshake runs the client side of the key exchange over an
// established, unencrypted framed stream and returns the two directional
// channels on success.
//
// A fresh initializer pair is generated for every call; no key or nonce
// material survives across attempts. The server's public key is checked
// against the validator before anything secret is sent. Any failure
// aborts only this attempt; the caller closes the stream and retries
// with a new connection.
func ClientHandshake(sender transport.MessageSender, receiver transport.MessageReceiver,
	validator *Validator, opts HandshakeOptions) (*Sender, *Receiver, error) {

	opts.applyDefaults()

	// Fresh symmetric material for this attempt
	pair, err := NewRandomInitializerPair()
	if err != nil {
		return nil, nil, err
	}

	// Wait for the server's public key
	keyDER, err := receiveFrame(receiver, opts.Timeout)
	if err != nil {
		return nil, nil, err
	}
	pub, err := ParsePublicKey(keyDER)
	if err != nil {
		return nil, nil, err
	}
	logHandshake(opts, log.PhaseKeyReceived, Fingerprint(keyDER))

	// Enforce identity continuity before sending anything secret
	if err := validator.Validate(keyDER); err != nil {
		return nil, nil, err
	}
	logHandshake(opts, log.PhaseKeyValidated, "")

	// Encrypt the initializer pair with the server's key and send it
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub, pair.Encode())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt initializer pair: %w", err)
	}
	if err := sender.Send(encrypted); err != nil {
		return nil, nil, err
	}
	logHandshake(opts, log.PhaseInitializerSent, "")

	// Client sends on cts, receives on stc
	s, err := NewSender(sender, pair.CTS)
	if err != nil {
		return nil, nil, err
	}
	r, err := NewReceiver(receiver, pair.STC)
	if err != nil {
		return nil, nil, err
	}
	logHandshake(opts, log.PhaseEstablished, "")

	return s, r, nil
}

// ServerHandshake runs the server side of the key exchange over an
// established, unencrypted framed stream.
//
// The key pair is stable across connections; only the symmetric material
// received from the client is per-connection. Any failure aborts only
// this connection; the key pair and listener are unaffected.
func ServerHandshake(sender transport.MessageSender, receiver transport.MessageReceiver,
	keys *KeyPair, opts HandshakeOptions) (*Sender, *Receiver, error) {

	opts.applyDefaults()

	// Announce our public key
	keyDER := MarshalPublicKey(keys.Public)
	if err := sender.Send(keyDER); err != nil {
		return nil, nil, err
	}

	// Wait for the client's encrypted initializer pair
	encrypted, err := receiveFrame(receiver, opts.Timeout)
	if err != nil {
		return nil, nil, err
	}
	decrypted, err := rsa.DecryptPKCS1v15(nil, keys.Private, encrypted)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decrypt failed", ErrInvalidInitializer)
	}
	pair, err := DecodeInitializerPair(decrypted)
	if err != nil {
		return nil, nil, err
	}

	// Server sends on stc, receives on cts
	s, err := NewSender(sender, pair.STC)
	if err != nil {
		return nil, nil, err
	}
	r, err := NewReceiver(receiver, pair.CTS)
	if err != nil {
		return nil, nil, err
	}
	logHandshake(opts, log.PhaseEstablished, Fingerprint(keyDER))

	return s, r, nil
}

// receiveFrame waits up to timeout for one frame.
//
// The read itself cannot be interrupted; on timeout the pending read is
// abandoned and the receiver must not be used again (the caller closes
// the underlying connection, which unblocks the read).
func receiveFrame(r transport.MessageReceiver, timeout time.Duration) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		data, err := r.Receive()
		ch <- result{data, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-timer.C:
		return nil, ErrHandshakeTimeout
	}
}

// logHandshake emits a handshake phase event if a logger is configured.
func logHandshake(opts HandshakeOptions, phase log.HandshakePhase, fingerprint string) {
	if opts.Logger == nil {
		return
	}
	opts.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: opts.ConnID,
		Layer:        log.LayerSecure,
		Category:     log.CategoryHandshake,
		Handshake: &log.HandshakeEvent{
			Phase:          phase,
			KeyFingerprint: fingerprint,
		},
	})
}
