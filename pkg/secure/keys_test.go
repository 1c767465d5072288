package secure

import (
	"errors"
	"testing"
)

func TestPublicKeyRoundTrip(t *testing.T) {
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	der := MarshalPublicKey(keys.Public)
	if len(der) == 0 {
		t.Fatal("empty DER encoding")
	}

	parsed, err := ParsePublicKey(der)
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	if !parsed.Equal(keys.Public) {
		t.Error("parsed key differs from original")
	}
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{},
		[]byte("not a DER public key"),
		{0x30, 0x82}, // truncated SEQUENCE header
	} {
		if _, err := ParsePublicKey(data); !errors.Is(err, ErrInvalidPublicKey) {
			t.Errorf("ParsePublicKey(%v): expected ErrInvalidPublicKey, got %v", data, err)
		}
	}
}

func TestKeySizeSupportsInitializerPair(t *testing.T) {
	// PKCS#1 v1.5 with a 2048-bit modulus carries at most 256-11 bytes,
	// comfortably above the 88-byte initializer pair.
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	if got := keys.Private.Size(); got != KeyBits/8 {
		t.Errorf("modulus size = %d bytes, want %d", got, KeyBits/8)
	}
	if maxPayload := keys.Private.Size() - 11; maxPayload < PairEncodedSize {
		t.Errorf("max payload %d below pair size %d", maxPayload, PairEncodedSize)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	der := MarshalPublicKey(keys.Public)

	fp1 := Fingerprint(der)
	fp2 := Fingerprint(der)
	if fp1 != fp2 {
		t.Errorf("fingerprint not deterministic: %q vs %q", fp1, fp2)
	}
	if len(fp1) != 64 { // sha256 hex
		t.Errorf("fingerprint length = %d, want 64", len(fp1))
	}

	other, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	if Fingerprint(MarshalPublicKey(other.Public)) == fp1 {
		t.Error("distinct keys share a fingerprint")
	}
}
