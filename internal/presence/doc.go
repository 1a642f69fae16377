// Package presence tracks per-conversation typing marks with a fixed TTL.
//
// Expiry is lazy: marks are never deleted explicitly, they just stop being
// reported once stale. A client that crashes mid-keystroke disappears from
// the typing set within the TTL without ever sending a stop frame.
//
// Two implementations share the domain.PresenceTracker contract: an
// in-memory tracker for a single node and a Redis-backed tracker that lets
// several nodes observe one typing set.
package presence
