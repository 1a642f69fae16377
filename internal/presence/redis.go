package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sotto/internal/domain"
)

// Redis key layout: one hash per conversation, field per principal, value
// "1"/"0". The hash TTL is refreshed on every upsert; field-level staleness
// is enforced by a parallel per-field timestamp key with the mark TTL, so
// expiry needs no sweeper here either.
const (
	typingHashPrefix = "typing:conv:" // typing:conv:{conversationId} -> hash
	typingMarkPrefix = "typing:mark:" // typing:mark:{conversationId}:{principalId} -> "1"/"0" with TTL
)

// RedisTracker keeps typing marks in Redis so every node of a multi-node
// deployment derives the same typing set.
type RedisTracker struct {
	rdb *redis.Client
}

// NewRedisTracker returns a tracker backed by rdb.
func NewRedisTracker(rdb *redis.Client) *RedisTracker {
	return &RedisTracker{rdb: rdb}
}

// SetTyping upserts the mark. The per-mark key carries the TTL; the hash
// only exists so LiveTypers can enumerate candidates without a key scan.
func (t *RedisTracker) SetTyping(ctx context.Context, conversationID string, principalID domain.PrincipalID, isTyping bool) error {
	val := "0"
	if isTyping {
		val = "1"
	}
	markKey := typingMarkPrefix + conversationID + ":" + string(principalID)
	if err := t.rdb.Set(ctx, markKey, val, TTL).Err(); err != nil {
		return fmt.Errorf("set typing mark: %w", err)
	}

	hashKey := typingHashPrefix + conversationID
	if err := t.rdb.HSet(ctx, hashKey, string(principalID), val).Err(); err != nil {
		return fmt.Errorf("index typing mark: %w", err)
	}
	// Keep the index around a little longer than any mark it names.
	t.rdb.Expire(ctx, hashKey, 2*TTL)
	return nil
}

// LiveTypers enumerates the conversation's candidates and keeps those whose
// mark key is still alive and set. Candidates whose mark expired are pruned
// from the index in passing.
func (t *RedisTracker) LiveTypers(ctx context.Context, conversationID string) ([]domain.PrincipalID, error) {
	hashKey := typingHashPrefix + conversationID
	fields, err := t.rdb.HKeys(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list typing candidates: %w", err)
	}

	var out []domain.PrincipalID
	for _, field := range fields {
		markKey := typingMarkPrefix + conversationID + ":" + field
		val, err := t.rdb.Get(ctx, markKey).Result()
		if err == redis.Nil {
			t.rdb.HDel(ctx, hashKey, field)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read typing mark: %w", err)
		}
		if val == "1" {
			out = append(out, domain.PrincipalID(field))
		}
	}
	return out, nil
}

// Compile-time assertion that RedisTracker implements domain.PresenceTracker.
var _ domain.PresenceTracker = (*RedisTracker)(nil)
