package presence

import (
	"context"
	"sync"
	"time"

	"sotto/internal/domain"
)

// TTL is how long a typing mark stays live without a refresh.
const TTL = 5 * time.Second

type mark struct {
	isTyping bool
	updated  time.Time
}

// Tracker is the in-memory presence tracker. Upserts for the same
// (conversation, principal) key are last-write-wins on the timestamp, which
// is acceptable because typing state is inherently approximate.
type Tracker struct {
	mu    sync.Mutex
	marks map[string]map[domain.PrincipalID]mark

	now func() time.Time
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{
		marks: make(map[string]map[domain.PrincipalID]mark),
		now:   time.Now,
	}
}

// NewTrackerAt returns a tracker with an injected clock, for tests.
func NewTrackerAt(now func() time.Time) *Tracker {
	t := NewTracker()
	t.now = now
	return t
}

// SetTyping upserts the mark for (conversationID, principalID) at now.
func (t *Tracker) SetTyping(_ context.Context, conversationID string, principalID domain.PrincipalID, isTyping bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.marks[conversationID]
	if !ok {
		m = make(map[domain.PrincipalID]mark)
		t.marks[conversationID] = m
	}
	m[principalID] = mark{isTyping: isTyping, updated: t.now()}
	return nil
}

// LiveTypers returns principals whose mark is typing and not expired. Stale
// marks are pruned in passing; there is no background sweeper.
func (t *Tracker) LiveTypers(_ context.Context, conversationID string) ([]domain.PrincipalID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var out []domain.PrincipalID
	for id, mk := range t.marks[conversationID] {
		if now.Sub(mk.updated) >= TTL {
			delete(t.marks[conversationID], id)
			continue
		}
		if mk.isTyping {
			out = append(out, id)
		}
	}
	if len(t.marks[conversationID]) == 0 {
		delete(t.marks, conversationID)
	}
	return out, nil
}

// Compile-time assertion that Tracker implements domain.PresenceTracker.
var _ domain.PresenceTracker = (*Tracker)(nil)
