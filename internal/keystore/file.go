package keystore

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sotto/internal/crypto"
	"sotto/internal/domain"
)

const idFilename = "identity.json.enc"

// FileStore persists the local identity to disk, sealed with a passphrase.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// SaveIdentity writes the sealed identity to disk.
func (s *FileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	blob, err := crypto.SealSecret(passphrase, raw)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, idFilename), blob, 0o600)
}

// LoadIdentity reads and unseals the identity.
func (s *FileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, idFilename))
	if err != nil {
		return domain.Identity{}, err
	}
	raw, err := crypto.OpenSecret(passphrase, blob)
	if err != nil {
		return domain.Identity{}, err
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// Generate creates a fresh identity for username, saves it sealed with the
// passphrase, and returns it along with a short public-key fingerprint.
// The principal id is assigned later, when the identity registers with a
// directory.
func (s *FileStore) Generate(passphrase, username string) (domain.Identity, string, error) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return domain.Identity{}, "", err
	}
	pubBlob, err := crypto.ExportPublic(&priv.PublicKey)
	if err != nil {
		return domain.Identity{}, "", err
	}
	privBlob, err := crypto.ExportPrivate(priv)
	if err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{
		Username:   username,
		PublicKey:  pubBlob,
		PrivateKey: privBlob,
	}
	if err := s.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, crypto.Fingerprint([]byte(pubBlob)), nil
}

// PrivateKey unseals the identity and parses its private key.
func (s *FileStore) PrivateKey(passphrase string) (*rsa.PrivateKey, domain.Identity, error) {
	id, err := s.LoadIdentity(passphrase)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	priv, err := crypto.ImportPrivate(id.PrivateKey)
	if err != nil {
		return nil, domain.Identity{}, fmt.Errorf("stored private key: %w", err)
	}
	return priv, id, nil
}

// Compile-time assertion that FileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*FileStore)(nil)
