package secure

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/pomegranate-proto/pomegranate-go/pkg/transport"
)

// Channel errors.
var (
	// ErrDecryptFailed indicates AEAD authentication failure: tampering,
	// corruption, or nonce counter desynchronization. The channel must be
	// discarded; there is no resynchronization mechanism.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Sender encrypts messages for one direction of a channel and passes the
// ciphertext to the underlying framing layer.
//
// Not safe for concurrent use: the nonce counter must advance exactly
// once per message, so each Sender belongs to exactly one flow. It is
// not reusable after the underlying connection is torn down.
type Sender struct {
	sender transport.MessageSender
	aead   cipher.AEAD
	nonce  *NonceCounter
}

// NewSender creates a sender keyed by one direction's initializer.
func NewSender(s transport.MessageSender, init Initializer) (*Sender, error) {
	aead, err := chacha20poly1305.New(init.Key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Sender{
		sender: s,
		aead:   aead,
		nonce:  NewNonceCounter(init.Nonce),
	}, nil
}

// Send encrypts msg under the next counter nonce and transmits the
// ciphertext (with appended authentication tag) as one frame. The nonce
// itself is never transmitted.
func (s *Sender) Send(msg []byte) error {
	nonce := s.nonce.Next()
	ciphertext := s.aead.Seal(nil, nonce[:], msg, nil)
	return s.sender.Send(ciphertext)
}

// Receiver decrypts messages for one direction of a channel.
//
// Not safe for concurrent use; see Sender. After any ErrDecryptFailed
// the receiver is permanently desynchronized and must be discarded.
type Receiver struct {
	receiver transport.MessageReceiver
	aead     cipher.AEAD
	nonce    *NonceCounter
}

// NewReceiver creates a receiver keyed by one direction's initializer.
func NewReceiver(r transport.MessageReceiver, init Initializer) (*Receiver, error) {
	aead, err := chacha20poly1305.New(init.Key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Receiver{
		receiver: r,
		aead:     aead,
		nonce:    NewNonceCounter(init.Nonce),
	}, nil
}

// Receive reads one ciphertext frame, decrypts it under the next counter
// nonce and verifies its authentication tag.
//
// The counter advances even when verification fails; the peers' counters
// stay in lock-step only while every frame arrives exactly once and in
// order, which the transport must guarantee.
func (r *Receiver) Receive() ([]byte, error) {
	ciphertext, err := r.receiver.Receive()
	if err != nil {
		return nil, err
	}

	nonce := r.nonce.Next()
	plaintext, err := r.aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Compile-time interface satisfaction checks: encrypted channels present
// the same capability surface as the raw framing layer.
var (
	_ transport.MessageSender   = (*Sender)(nil)
	_ transport.MessageReceiver = (*Receiver)(nil)
)
