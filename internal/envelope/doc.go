// Package envelope implements the hybrid-encryption envelope: message
// content sealed with a one-shot AES-256-GCM key, and that key wrapped once
// per recipient with RSA-OAEP. The package does no I/O; it consumes public
// keys handed to it and nothing else.
package envelope
