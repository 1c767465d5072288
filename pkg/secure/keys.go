package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
)

// KeyBits is the RSA modulus size used for the handshake key pair.
const KeyBits = 2048

// Key errors.
var (
	// ErrInvalidPublicKey indicates public key bytes that failed to parse.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// KeyPair is the server's long-lived RSA key pair. It is generated once
// (outside the handshake) and reused across client connections.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKeyPair generates a fresh RSA-2048 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &KeyPair{
		Private: priv,
		Public:  &priv.PublicKey,
	}, nil
}

// MarshalPublicKey encodes a public key to PKCS#1 DER, the form sent on
// the wire during the handshake.
func MarshalPublicKey(pub *rsa.PublicKey) []byte {
	return x509.MarshalPKCS1PublicKey(pub)
}

// ParsePublicKey decodes PKCS#1 DER public key bytes.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of DER public key
// bytes, used to identify keys in logs without dumping the key itself.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
