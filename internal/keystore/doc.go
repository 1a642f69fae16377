// Package keystore persists the local principal's identity, sealed under a
// passphrase. The private key is retrievable only here, on the device that
// generated it; losing the passphrase or the file means past messages stay
// unreadable. Recovery flows elsewhere restore login only, never keys.
package keystore
