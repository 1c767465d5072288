package secure

// NonceSize is the AEAD nonce size in bytes (96 bits).
const NonceSize = 12

// NonceCounter produces the sequence of nonces for one direction of a
// channel. Each call to Next returns the current value and advances the
// counter by one, so a (key, nonce) pair is never used twice within one
// key's lifetime.
//
// Not safe for concurrent use; each counter belongs to exactly one
// Sender or Receiver.
type NonceCounter struct {
	nonce [NonceSize]byte
}

// NewNonceCounter creates a counter seeded with the given starting nonce.
func NewNonceCounter(init [NonceSize]byte) *NonceCounter {
	return &NonceCounter{nonce: init}
}

// Next returns the current nonce value and advances the counter.
func (c *NonceCounter) Next() [NonceSize]byte {
	val := c.nonce
	incBytes(c.nonce[:])
	return val
}

// incBytes interprets the slice as one big-endian unsigned integer and
// increments it in place, wrapping silently to zero on overflow of the
// full width.
func incBytes(num []byte) {
	for i := len(num) - 1; i >= 0; i-- {
		num[i]++
		if num[i] != 0 {
			return
		}
	}
}
