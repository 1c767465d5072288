package secure

import (
	"bytes"
	"errors"
	"testing"
)

func TestNewRandomInitializerPair(t *testing.T) {
	pair, err := NewRandomInitializerPair()
	if err != nil {
		t.Fatalf("NewRandomInitializerPair failed: %v", err)
	}

	// The two directions must have disjoint key material
	if pair.CTS.Key == pair.STC.Key {
		t.Error("cts and stc share a key")
	}
	if pair.CTS.Nonce == pair.STC.Nonce {
		t.Error("cts and stc share a starting nonce")
	}

	var zeroKey [KeySize]byte
	if pair.CTS.Key == zeroKey || pair.STC.Key == zeroKey {
		t.Error("generated key is all zero")
	}
}

func TestInitializerPairEncodeLayout(t *testing.T) {
	var pair InitializerPair
	for i := range pair.CTS.Key {
		pair.CTS.Key[i] = 0x11
	}
	for i := range pair.CTS.Nonce {
		pair.CTS.Nonce[i] = 0x22
	}
	for i := range pair.STC.Key {
		pair.STC.Key[i] = 0x33
	}
	for i := range pair.STC.Nonce {
		pair.STC.Nonce[i] = 0x44
	}

	enc := pair.Encode()
	if len(enc) != PairEncodedSize {
		t.Fatalf("encoded size = %d, want %d", len(enc), PairEncodedSize)
	}

	// Fixed layout: cts.key[32], cts.nonce[12], stc.key[32], stc.nonce[12]
	if !bytes.Equal(enc[0:32], bytes.Repeat([]byte{0x11}, 32)) {
		t.Error("cts.key not at offset 0")
	}
	if !bytes.Equal(enc[32:44], bytes.Repeat([]byte{0x22}, 12)) {
		t.Error("cts.nonce not at offset 32")
	}
	if !bytes.Equal(enc[44:76], bytes.Repeat([]byte{0x33}, 32)) {
		t.Error("stc.key not at offset 44")
	}
	if !bytes.Equal(enc[76:88], bytes.Repeat([]byte{0x44}, 12)) {
		t.Error("stc.nonce not at offset 76")
	}
}

func TestInitializerPairDecodeRoundTrip(t *testing.T) {
	pair, err := NewRandomInitializerPair()
	if err != nil {
		t.Fatalf("NewRandomInitializerPair failed: %v", err)
	}

	decoded, err := DecodeInitializerPair(pair.Encode())
	if err != nil {
		t.Fatalf("DecodeInitializerPair failed: %v", err)
	}
	if decoded != pair {
		t.Error("decoded pair differs from original")
	}
}

func TestDecodeInitializerPairBadLength(t *testing.T) {
	for _, n := range []int{0, 1, PairEncodedSize - 1, PairEncodedSize + 1} {
		_, err := DecodeInitializerPair(make([]byte, n))
		if !errors.Is(err, ErrInvalidInitializer) {
			t.Errorf("length %d: expected ErrInvalidInitializer, got %v", n, err)
		}
	}
}
