// Package registry maps principals to their open authenticated connections.
// A principal may hold any number of simultaneous connections (devices,
// tabs); fanout delivers one frame to every one of them.
package registry
