package domain

// Envelope is the self-contained encrypted unit on the wire: ciphertext and
// nonce from a one-shot AEAD key, plus that key wrapped once per recipient
// under the recipient's public key. Byte fields marshal as base64 in JSON.
type Envelope struct {
	Ciphertext  []byte                 `json:"ciphertext"`
	Nonce       []byte                 `json:"nonce"`
	WrappedKeys map[PrincipalID][]byte `json:"wrappedKeys"`
}

// Recipients returns the principals the envelope was sealed for.
func (e Envelope) Recipients() []PrincipalID {
	out := make([]PrincipalID, 0, len(e.WrappedKeys))
	for id := range e.WrappedKeys {
		out = append(out, id)
	}
	return out
}

// Valid reports whether the envelope has the parts every envelope needs.
// It says nothing about whether decryption will succeed.
func (e Envelope) Valid() bool {
	return len(e.Ciphertext) > 0 && len(e.Nonce) > 0 && len(e.WrappedKeys) > 0
}
