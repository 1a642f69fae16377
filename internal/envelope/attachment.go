package envelope

import (
	"crypto/rand"

	"sotto/internal/domain"
)

// Attachment metadata rides in the outer message plaintext next to the
// nested content key, so it is end-to-end encrypted with the message text
// while the blob itself travels (or is stored) separately as opaque bytes.
// Name, size and MIME type are deliberately not hidden from recipients;
// nothing about the attachment is visible to the server.

// AttachmentBlob is the sealed binary content of one attachment.
type AttachmentBlob struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

// AttachmentKey is embedded in the outer message plaintext. It carries the
// attachment's raw content key on the same end-to-end trust path as the
// message text, instead of adding entries to the outer wrappedKeys map.
type AttachmentKey struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Key      []byte `json:"key"`
}

// SealAttachment encrypts content under a fresh one-shot key and returns
// the key raw. The caller embeds the key (inside an AttachmentKey) in the
// message plaintext before sealing the outer envelope, then discards it.
func SealAttachment(content []byte) (AttachmentBlob, []byte, error) {
	key := make([]byte, contentKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return AttachmentBlob{}, nil, err
	}
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return AttachmentBlob{}, nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return AttachmentBlob{}, nil, err
	}
	ct := aead.Seal(nil, nonce, content, nil)
	return AttachmentBlob{Ciphertext: ct, Nonce: nonce}, key, nil
}

// OpenAttachment decrypts a sealed blob with a key recovered from the outer
// message plaintext.
func OpenAttachment(blob AttachmentBlob, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, domain.ErrUnwrapFailed
	}
	if len(blob.Nonce) != aead.NonceSize() {
		return nil, domain.ErrAuthenticationFailed
	}
	pt, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	return pt, nil
}
