package secure

import (
	"bytes"
	"errors"
	"sync"
)

// Identity errors.
var (
	// ErrIdentityChanged indicates the server presented a public key
	// different from the pinned one. Security-relevant: it can mean an
	// active impersonation attempt or a server key rotation.
	ErrIdentityChanged = errors.New("server public key changed")
)

// Validator is a trust-on-first-use store for one server's public key.
// The first key validated is pinned; every later candidate must be
// byte-identical to it. The pinned key is never replaced implicitly.
//
// A Validator belongs to one client instance and is threaded through
// every handshake attempt; independent clients in one process must each
// own their own Validator.
type Validator struct {
	mu      sync.Mutex
	trusted []byte // PKCS#1 DER of the pinned key, nil until first use
	bypass  bool
}

// NewValidator creates an empty validator that pins the first key it sees.
func NewValidator() *Validator {
	return &Validator{}
}

// NewBypassValidator creates a validator that accepts any key without
// pinning. Diagnostic use only: it disables server authentication
// entirely.
func NewBypassValidator() *Validator {
	return &Validator{bypass: true}
}

// Validate checks candidate DER public key bytes against the pinned key.
// With no key pinned the candidate is stored and accepted. A mismatch
// returns ErrIdentityChanged and leaves the stored trust unchanged.
func (v *Validator) Validate(candidate []byte) error {
	if v.bypass {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.trusted == nil {
		// First contact, pin the key
		v.trusted = bytes.Clone(candidate)
		return nil
	}

	if !bytes.Equal(v.trusted, candidate) {
		return ErrIdentityChanged
	}
	return nil
}

// TrustedKey returns a copy of the pinned key DER, or nil if no key has
// been pinned yet (or bypass mode is active).
func (v *Validator) TrustedKey() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return bytes.Clone(v.trusted)
}

// Reset discards the pinned key. The next Validate pins anew. This is an
// explicit operator action (e.g. after a known server key rotation),
// never called by the connection loop.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trusted = nil
}

// Bypassed reports whether identity checking is disabled.
func (v *Validator) Bypassed() bool {
	return v.bypass
}
