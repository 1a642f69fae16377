package presence_test

import (
	"context"
	"testing"
	"time"

	"sotto/internal/domain"
	"sotto/internal/presence"
)

// clock is a settable fake time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func typers(t *testing.T, tr *presence.Tracker, conv string) map[domain.PrincipalID]bool {
	t.Helper()
	ids, err := tr.LiveTypers(context.Background(), conv)
	if err != nil {
		t.Fatalf("LiveTypers: %v", err)
	}
	out := make(map[domain.PrincipalID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func TestLiveTypers_ExpiryBoundary(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	tr := presence.NewTrackerAt(c.now)
	ctx := context.Background()

	if err := tr.SetTyping(ctx, "conv", "alice", true); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}

	c.advance(presence.TTL - time.Millisecond)
	if !typers(t, tr, "conv")["alice"] {
		t.Fatal("mark expired before TTL")
	}

	c.advance(2 * time.Millisecond)
	if typers(t, tr, "conv")["alice"] {
		t.Fatal("mark still live after TTL, with no stop frame sent")
	}
}

func TestLiveTypers_FalseMarkExcluded(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	tr := presence.NewTrackerAt(c.now)
	ctx := context.Background()

	_ = tr.SetTyping(ctx, "conv", "alice", true)
	_ = tr.SetTyping(ctx, "conv", "bob", false)

	got := typers(t, tr, "conv")
	if !got["alice"] || got["bob"] {
		t.Fatalf("got %v, want alice only", got)
	}
}

func TestSetTyping_RefreshIsLastWriteWins(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	tr := presence.NewTrackerAt(c.now)
	ctx := context.Background()

	_ = tr.SetTyping(ctx, "conv", "alice", true)
	c.advance(4 * time.Second)
	_ = tr.SetTyping(ctx, "conv", "alice", true) // refresh from another device

	c.advance(4 * time.Second) // 8s after first mark, 4s after refresh
	if !typers(t, tr, "conv")["alice"] {
		t.Fatal("refresh did not extend the mark")
	}

	_ = tr.SetTyping(ctx, "conv", "alice", false) // explicit stop wins immediately
	if typers(t, tr, "conv")["alice"] {
		t.Fatal("explicit stop ignored")
	}
}

func TestLiveTypers_ConversationsIndependent(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	tr := presence.NewTrackerAt(c.now)
	ctx := context.Background()

	_ = tr.SetTyping(ctx, "conv-a", "alice", true)
	if len(typers(t, tr, "conv-b")) != 0 {
		t.Fatal("mark leaked across conversations")
	}
}
