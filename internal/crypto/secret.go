package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"sotto/internal/util/memzero"
)

const (
	// The current supported version of the sealed blob format stored on disk.
	secretFormatVersion = 1

	saltBytes = 16
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed blob has been modified or corrupted.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted secret")

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	Time   uint32 `json:"argon_t"`
	Memory uint32 `json:"argon_m"`
	Lanes  uint8  `json:"argon_p"`
	Cipher []byte `json:"cipher"`
}

// Tunables for Argon2id key derivation.
func argonParamsDefault() (time, memory uint32, lanes uint8) { return 1, 1 << 16, 1 }

// SealSecret derives a key from passphrase and seals raw into a JSON blob.
func SealSecret(passphrase string, raw []byte) ([]byte, error) {
	var salt [saltBytes]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	t, m, p := argonParamsDefault()
	key := argon2.IDKey([]byte(passphrase), salt[:], t, m, p, chacha20poly1305.KeySize)
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(blob{
		V:      secretFormatVersion,
		Salt:   salt[:],
		Time:   t,
		Memory: m,
		Lanes:  p,
		Cipher: ct,
	})
}

// OpenSecret opens a JSON blob using a key derived from passphrase.
func OpenSecret(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > secretFormatVersion {
		return nil, fmt.Errorf("unsupported secret format version %d", bl.V)
	}

	key := argon2.IDKey([]byte(passphrase), bl.Salt, bl.Time, bl.Memory, bl.Lanes, chacha20poly1305.KeySize)
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
