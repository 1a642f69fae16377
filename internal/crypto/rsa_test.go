package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"sotto/internal/crypto"
	"sotto/internal/domain"
)

func TestPublicKey_ExportImport_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	blob, err := crypto.ExportPublic(&priv.PublicKey)
	if err != nil {
		t.Fatalf("ExportPublic: %v", err)
	}
	pub, err := crypto.ImportPublic(blob)
	if err != nil {
		t.Fatalf("ImportPublic: %v", err)
	}
	if pub.N.Cmp(priv.PublicKey.N) != 0 || pub.E != priv.PublicKey.E {
		t.Fatal("public key mismatch after round trip")
	}
}

func TestPrivateKey_ExportImport_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	blob, err := crypto.ExportPrivate(priv)
	if err != nil {
		t.Fatalf("ExportPrivate: %v", err)
	}
	got, err := crypto.ImportPrivate(blob)
	if err != nil {
		t.Fatalf("ImportPrivate: %v", err)
	}
	if got.D.Cmp(priv.D) != 0 {
		t.Fatal("private key mismatch after round trip")
	}
}

func TestImport_Malformed(t *testing.T) {
	for _, blob := range []string{"", "not base64!!!", "aGVsbG8=" /* valid b64, not a key */} {
		if _, err := crypto.ImportPublic(blob); !errors.Is(err, domain.ErrKeyImport) {
			t.Fatalf("ImportPublic(%q): got %v, want ErrKeyImport", blob, err)
		}
		if _, err := crypto.ImportPrivate(blob); !errors.Is(err, domain.ErrKeyImport) {
			t.Fatalf("ImportPrivate(%q): got %v, want ErrKeyImport", blob, err)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	key := bytes.Repeat([]byte{0x5a}, 32)

	wrapped, err := crypto.Wrap(&priv.PublicKey, key)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := crypto.Unwrap(priv, wrapped)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatal("content key mismatch after wrap/unwrap")
	}
}

func TestUnwrap_WrongKey(t *testing.T) {
	a, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	wrapped, err := crypto.Wrap(&a.PublicKey, bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if _, err := crypto.Unwrap(b, wrapped); !errors.Is(err, domain.ErrUnwrapFailed) {
		t.Fatalf("got %v, want ErrUnwrapFailed", err)
	}
}

func TestSecret_SealOpen(t *testing.T) {
	sealed, err := crypto.SealSecret("passphrase", []byte("key material"))
	if err != nil {
		t.Fatalf("SealSecret: %v", err)
	}
	pt, err := crypto.OpenSecret("passphrase", sealed)
	if err != nil {
		t.Fatalf("OpenSecret: %v", err)
	}
	if string(pt) != "key material" {
		t.Fatalf("got %q", pt)
	}

	if _, err := crypto.OpenSecret("wrong", sealed); !errors.Is(err, crypto.ErrWrongPassphrase) {
		t.Fatalf("got %v, want ErrWrongPassphrase", err)
	}
}
