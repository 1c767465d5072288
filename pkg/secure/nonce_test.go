package secure

import (
	"bytes"
	"testing"
)

func TestIncBytes(t *testing.T) {
	tests := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{0x10}, []byte{0x11}},
		{[]byte{0xFF}, []byte{0x00}},
		{[]byte{0x00, 0x00}, []byte{0x00, 0x01}},
		{[]byte{0x00, 0xFF}, []byte{0x01, 0x00}},
		{[]byte{0xFF, 0xFF}, []byte{0x00, 0x00}},
		{
			bytes.Repeat([]byte{0xDA}, 12),
			append(bytes.Repeat([]byte{0xDA}, 11), 0xDB),
		},
	}

	for _, tt := range tests {
		got := bytes.Clone(tt.in)
		incBytes(got)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("incBytes(%x) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestNonceCounterNext(t *testing.T) {
	var seed [NonceSize]byte
	seed[NonceSize-1] = 0xFE

	c := NewNonceCounter(seed)

	// Next returns the current value, then advances
	first := c.Next()
	if first != seed {
		t.Errorf("first nonce = %x, want seed %x", first, seed)
	}

	second := c.Next()
	var wantSecond [NonceSize]byte
	wantSecond[NonceSize-1] = 0xFF
	if second != wantSecond {
		t.Errorf("second nonce = %x, want %x", second, wantSecond)
	}

	// 0x...00FF increments with carry into the next byte
	third := c.Next()
	var wantThird [NonceSize]byte
	wantThird[NonceSize-2] = 0x01
	if third != wantThird {
		t.Errorf("third nonce = %x, want %x", third, wantThird)
	}
}

func TestNonceCounterWraparound(t *testing.T) {
	var seed [NonceSize]byte
	for i := range seed {
		seed[i] = 0xFF
	}

	c := NewNonceCounter(seed)
	if got := c.Next(); got != seed {
		t.Fatalf("nonce = %x, want all-FF seed", got)
	}

	// Overflow of the full width wraps silently to zero
	var zero [NonceSize]byte
	if got := c.Next(); got != zero {
		t.Errorf("wrapped nonce = %x, want all zero", got)
	}
}

func TestNonceCounterFullPeriodSmallWidth(t *testing.T) {
	// The full-period property over 2^96 values cannot be run directly;
	// verify it on the same increment logic at 2-byte width, where each
	// of the 2^16 values appears exactly once before the seed recurs.
	seed := []byte{0xAB, 0xCD}
	cur := bytes.Clone(seed)

	seen := make(map[uint16]bool, 1<<16)
	for i := 0; i < 1<<16; i++ {
		v := uint16(cur[0])<<8 | uint16(cur[1])
		if seen[v] {
			t.Fatalf("value %04x repeated after %d increments", v, i)
		}
		seen[v] = true
		incBytes(cur)
	}

	if !bytes.Equal(cur, seed) {
		t.Errorf("after full period counter = %x, want seed %x", cur, seed)
	}
}

func TestNonceCountersIndependent(t *testing.T) {
	var seed [NonceSize]byte
	a := NewNonceCounter(seed)
	b := NewNonceCounter(seed)

	a.Next()
	a.Next()

	// Advancing one counter must not affect the other
	if got := b.Next(); got != seed {
		t.Errorf("second counter nonce = %x, want untouched seed", got)
	}
}
