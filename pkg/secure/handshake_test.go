package secure

import (
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomegranate-proto/pomegranate-go/pkg/transport"
)

type handshakeResult struct {
	sender   *Sender
	receiver *Receiver
	err      error
}

// runHandshake drives both sides of a key exchange over an in-memory
// pipe and returns the client result, waiting for the server goroutine
// to finish first.
func runHandshake(t *testing.T, validator *Validator, keys *KeyPair) (client, server handshakeResult) {
	t.Helper()

	clientEnd, serverEnd := transport.NewPipe()

	// Short timeout keeps aborted-handshake cases from stalling the test:
	// the surviving side times out instead of waiting the full default.
	opts := HandshakeOptions{Timeout: time.Second}

	serverCh := make(chan handshakeResult, 1)
	go func() {
		s, r, err := ServerHandshake(serverEnd, serverEnd, keys, opts)
		serverCh <- handshakeResult{s, r, err}
	}()

	s, r, err := ClientHandshake(clientEnd, clientEnd, validator, opts)
	client = handshakeResult{s, r, err}
	server = <-serverCh
	return client, server
}

func TestHandshakeEstablishesChannels(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	client, server := runHandshake(t, NewBypassValidator(), keys)
	require.NoError(t, client.err)
	require.NoError(t, server.err)

	// Client to server direction
	done := make(chan error, 1)
	go func() { done <- client.sender.Send([]byte("ping")) }()
	msg, err := server.receiver.Receive()
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, []byte("ping"), msg)

	// Server to client direction
	go func() { done <- server.sender.Send([]byte("pong")) }()
	msg, err = client.receiver.Receive()
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, []byte("pong"), msg)
}

func TestHandshakeDirectionsIndependent(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	client, server := runHandshake(t, NewBypassValidator(), keys)
	require.NoError(t, client.err)
	require.NoError(t, server.err)

	// Interleave traffic; each direction keeps its own counter so the
	// ordering across directions does not matter.
	done := make(chan error, 4)
	go func() {
		done <- client.sender.Send([]byte("c1"))
		done <- server.sender.Send([]byte("s1"))
		done <- client.sender.Send([]byte("c2"))
		done <- server.sender.Send([]byte("s2"))
	}()

	msg, err := server.receiver.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("c1"), msg)

	msg, err = client.receiver.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("s1"), msg)

	msg, err = server.receiver.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("c2"), msg)

	msg, err = client.receiver.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("s2"), msg)

	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}
}

func TestHandshakePinsIdentity(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	validator := NewValidator()
	client, server := runHandshake(t, validator, keys)
	require.NoError(t, client.err)
	require.NoError(t, server.err)

	assert.Equal(t, MarshalPublicKey(keys.Public), validator.TrustedKey())

	// Reconnecting against the same key succeeds
	client, server = runHandshake(t, validator, keys)
	require.NoError(t, client.err)
	require.NoError(t, server.err)
}

func TestHandshakeRejectsChangedIdentity(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	validator := NewValidator()
	client, server := runHandshake(t, validator, keys)
	require.NoError(t, client.err)
	require.NoError(t, server.err)

	// The server comes back with a different key pair; the client must
	// abort before sending any symmetric material.
	otherKeys, err := GenerateKeyPair()
	require.NoError(t, err)

	client, server = runHandshake(t, validator, otherKeys)
	assert.ErrorIs(t, client.err, ErrIdentityChanged)
	assert.Error(t, server.err) // the initializer pair never arrives

	// The original trust pin is untouched
	assert.Equal(t, MarshalPublicKey(keys.Public), validator.TrustedKey())
}

func TestHandshakeFreshPairPerAttempt(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)
	keyDER := MarshalPublicKey(keys.Public)

	// Play the server by hand so the client's encrypted initializer
	// frame can be captured and decrypted directly.
	capturePair := func() InitializerPair {
		clientEnd, serverEnd := transport.NewPipe()

		blobCh := make(chan []byte, 1)
		go func() {
			if err := serverEnd.Send(keyDER); err != nil {
				return
			}
			blob, err := serverEnd.Receive()
			if err != nil {
				return
			}
			blobCh <- blob
		}()

		_, _, err := ClientHandshake(clientEnd, clientEnd, NewBypassValidator(),
			HandshakeOptions{Timeout: time.Second})
		require.NoError(t, err)

		decrypted, err := rsa.DecryptPKCS1v15(nil, keys.Private, <-blobCh)
		require.NoError(t, err)
		pair, err := DecodeInitializerPair(decrypted)
		require.NoError(t, err)
		return pair
	}

	first := capturePair()
	second := capturePair()
	assert.NotEqual(t, first, second, "initializer pair reused across attempts")
}

func TestHandshakeTimeout(t *testing.T) {
	clientEnd, _ := transport.NewPipe()

	// No server side: the public key never arrives.
	start := time.Now()
	_, _, err := ClientHandshake(clientEnd, clientEnd, NewBypassValidator(),
		HandshakeOptions{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, ErrHandshakeTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestServerHandshakeRejectsGarbage(t *testing.T) {
	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	clientEnd, serverEnd := transport.NewPipe()

	serverCh := make(chan handshakeResult, 1)
	go func() {
		s, r, err := ServerHandshake(serverEnd, serverEnd, keys, HandshakeOptions{})
		serverCh <- handshakeResult{s, r, err}
	}()

	// Consume the public key, then answer with bytes that are not a
	// valid RSA ciphertext.
	_, err = clientEnd.Receive()
	require.NoError(t, err)
	require.NoError(t, clientEnd.Send([]byte("not an encrypted initializer pair")))

	server := <-serverCh
	assert.ErrorIs(t, server.err, ErrInvalidInitializer)
}
