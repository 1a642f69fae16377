// Package session owns one client-side transport connection and its
// lifecycle: dial, authenticate in-band, operate, and reconnect with
// bounded exponential backoff after unclean closes. A session that
// exhausts its reconnect budget parks in FailedPermanently and stays there
// until the caller reconnects explicitly.
package session
