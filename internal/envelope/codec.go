package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"sotto/internal/crypto"
	"sotto/internal/domain"
	"sotto/internal/util/memzero"
)

const (
	contentKeyBytes = 32 // AES-256
	nonceBytes      = 12 // standard GCM nonce
)

// Seal encrypts plaintext for every principal in recipients.
//
// A fresh content key is generated per call, used for exactly this payload,
// wrapped once per recipient, and zeroed before returning. The sender must
// include itself in recipients if it needs to re-read its own message.
func Seal(plaintext []byte, recipients map[domain.PrincipalID]*rsa.PublicKey) (domain.Envelope, error) {
	if len(recipients) == 0 {
		return domain.Envelope{}, domain.ErrRecipientListEmpty
	}

	key := make([]byte, contentKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return domain.Envelope{}, err
	}
	defer memzero.Zero(key)

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return domain.Envelope{}, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return domain.Envelope{}, err
	}
	ct := aead.Seal(nil, nonce, plaintext, nil)

	wrapped := make(map[domain.PrincipalID][]byte, len(recipients))
	for id, pub := range recipients {
		if pub == nil {
			return domain.Envelope{}, fmt.Errorf("%w: nil key for %s", domain.ErrKeyImport, id)
		}
		wk, err := crypto.Wrap(pub, key)
		if err != nil {
			return domain.Envelope{}, fmt.Errorf("wrap for %s: %w", id, err)
		}
		wrapped[id] = wk
	}

	return domain.Envelope{Ciphertext: ct, Nonce: nonce, WrappedKeys: wrapped}, nil
}

// SealFor is Seal over serialized public keys, as returned by the store's
// conversation key map.
func SealFor(plaintext []byte, keyBlobs map[domain.PrincipalID]string) (domain.Envelope, error) {
	if len(keyBlobs) == 0 {
		return domain.Envelope{}, domain.ErrRecipientListEmpty
	}
	recipients := make(map[domain.PrincipalID]*rsa.PublicKey, len(keyBlobs))
	for id, blob := range keyBlobs {
		pub, err := crypto.ImportPublic(blob)
		if err != nil {
			return domain.Envelope{}, fmt.Errorf("recipient %s: %w", id, err)
		}
		recipients[id] = pub
	}
	return Seal(plaintext, recipients)
}

// Open recovers the plaintext for self.
//
// Failure modes stay distinct in-process: ErrNotARecipient when the envelope
// carries no entry for self, ErrUnwrapFailed when the key unwrap fails, and
// ErrAuthenticationFailed when the content tag does not verify. Anything
// that leaves the process goes through domain.RedactDecrypt first.
func Open(env domain.Envelope, self domain.PrincipalID, priv *rsa.PrivateKey) ([]byte, error) {
	wrapped, ok := env.WrappedKeys[self]
	if !ok {
		return nil, domain.ErrNotARecipient
	}

	key, err := crypto.Unwrap(priv, wrapped)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, domain.ErrUnwrapFailed
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, domain.ErrAuthenticationFailed
	}
	pt, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	return pt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
