package secure

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// KeySize is the symmetric key size in bytes (256 bits).
const KeySize = 32

// PairEncodedSize is the size of the fixed binary layout of an
// InitializerPair: two keys and two nonces.
const PairEncodedSize = 2 * (KeySize + NonceSize) // 88 bytes

// Initializer errors.
var (
	// ErrInvalidInitializer indicates a malformed initializer pair payload.
	ErrInvalidInitializer = errors.New("invalid initializer pair")
)

// Initializer holds the secret key and starting nonce for one direction
// of a channel.
type Initializer struct {
	Key   [KeySize]byte
	Nonce [NonceSize]byte
}

// NewRandomInitializer generates an initializer from the OS entropy source.
func NewRandomInitializer() (Initializer, error) {
	var init Initializer
	if _, err := io.ReadFull(rand.Reader, init.Key[:]); err != nil {
		return Initializer{}, fmt.Errorf("failed to generate key: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, init.Nonce[:]); err != nil {
		return Initializer{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return init, nil
}

// InitializerPair holds the initializers for both directions of a
// connection. A fresh pair is generated by the client for every
// connection attempt and never reused.
type InitializerPair struct {
	// CTS keys the client-to-server direction.
	CTS Initializer

	// STC keys the server-to-client direction.
	STC Initializer
}

// NewRandomInitializerPair generates both directions from the OS entropy
// source.
func NewRandomInitializerPair() (InitializerPair, error) {
	cts, err := NewRandomInitializer()
	if err != nil {
		return InitializerPair{}, err
	}
	stc, err := NewRandomInitializer()
	if err != nil {
		return InitializerPair{}, err
	}
	return InitializerPair{CTS: cts, STC: stc}, nil
}

// Encode serializes the pair into its fixed binary layout:
// cts.key, cts.nonce, stc.key, stc.nonce.
func (p *InitializerPair) Encode() []byte {
	buf := make([]byte, 0, PairEncodedSize)
	buf = append(buf, p.CTS.Key[:]...)
	buf = append(buf, p.CTS.Nonce[:]...)
	buf = append(buf, p.STC.Key[:]...)
	buf = append(buf, p.STC.Nonce[:]...)
	return buf
}

// DecodeInitializerPair parses the fixed binary layout produced by Encode.
func DecodeInitializerPair(data []byte) (InitializerPair, error) {
	if len(data) != PairEncodedSize {
		return InitializerPair{}, fmt.Errorf("%w: %d bytes, want %d",
			ErrInvalidInitializer, len(data), PairEncodedSize)
	}

	var p InitializerPair
	off := 0
	off += copy(p.CTS.Key[:], data[off:])
	off += copy(p.CTS.Nonce[:], data[off:])
	off += copy(p.STC.Key[:], data[off:])
	copy(p.STC.Nonce[:], data[off:])
	return p, nil
}
