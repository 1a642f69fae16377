// Package engine is the server-side protocol state machine. Each connection
// moves Unauthenticated -> Authenticated -> Closed; the engine validates
// frames against that state, persists through the external store, and
// computes the fanout set for every accepted frame.
package engine
