// Package crypto exposes the asymmetric primitives used by sotto.
//
// Contents
//
//   - RSA key pair generation and wrap/unwrap of short content keys with
//     RSA-OAEP over SHA-256 (GenerateKeyPair, Wrap, Unwrap)
//   - Transportable key encodings: base64 of SPKI for public keys and of
//     PKCS#8 for private keys (ExportPublic, ImportPublic, ExportPrivate,
//     ImportPrivate)
//   - Passphrase sealing for secrets at rest with Argon2id and
//     ChaCha20-Poly1305 (SealSecret, OpenSecret)
//   - Short public-key fingerprints for display (Fingerprint)
//
// Wrap and Unwrap only ever see short symmetric keys, never message
// content. Callers should treat returned secrets as sensitive and rely on
// memzero when practical to reduce lifetime in memory.
package crypto
