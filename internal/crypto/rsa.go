package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"sotto/internal/domain"
)

// KeyBits is the RSA modulus size for generated identities.
const KeyBits = 2048

// GenerateKeyPair produces a fresh RSA key pair for a principal.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, KeyBits)
}

// ExportPublic serializes a public key as base64 of its SPKI encoding.
func ExportPublic(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ImportPublic parses a base64 SPKI public key.
func ImportPublic(blob string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyImport, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyImport, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", domain.ErrKeyImport)
	}
	return pub, nil
}

// ExportPrivate serializes a private key as base64 of its PKCS#8 encoding.
// The result must never leave the owning principal's trust boundary.
func ExportPrivate(priv *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ImportPrivate parses a base64 PKCS#8 private key.
func ImportPrivate(blob string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyImport, err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyImport, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", domain.ErrKeyImport)
	}
	return priv, nil
}

// Wrap encrypts a short content key under pub with RSA-OAEP/SHA-256.
func Wrap(pub *rsa.PublicKey, contentKey []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, contentKey, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap content key: %w", err)
	}
	return ct, nil
}

// Unwrap decrypts a wrapped content key. Any mismatch (wrong key, corrupted
// ciphertext) is domain.ErrUnwrapFailed; OAEP gives no finer signal and we
// must not invent one.
func Unwrap(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, domain.ErrUnwrapFailed
	}
	return key, nil
}
