package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}

	addr := NewAddress(PresalePrefix, raw)
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(PresalePrefix)+"1") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("expected %x, got %x", raw, decoded.Bytes())
	}
	if decoded.Prefix() != PresalePrefix {
		t.Fatalf("unexpected prefix: %s", decoded.Prefix())
	}
	if decoded.Array() != addr.Array() {
		t.Fatal("array form mismatch")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "not-an-address", "pre1qqqq"} {
		if _, err := DecodeAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestNewAddressPanicsOnBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for short address")
		}
	}()
	NewAddress(PresalePrefix, []byte{1, 2, 3})
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatal("restored key derives a different address")
	}
}

func TestPublicKeyAddressUsesPresalePrefix(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.Prefix() != PresalePrefix {
		t.Fatalf("unexpected prefix: %s", addr.Prefix())
	}
	if len(addr.Bytes()) != 20 {
		t.Fatalf("unexpected address length: %d", len(addr.Bytes()))
	}
}
