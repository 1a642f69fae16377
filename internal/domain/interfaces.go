package domain

import "context"

// Store is the external persistence boundary consumed by the protocol
// engine and the directory surface. Persistence mechanics are behind it.
type Store interface {
	CreatePrincipal(ctx context.Context, username, publicKey string) (Principal, error)
	GetPrincipal(ctx context.Context, id PrincipalID) (Principal, error)

	CreateConversation(ctx context.Context, kind ConversationKind, members []PrincipalID) (Conversation, error)
	GetConversationMembers(ctx context.Context, conversationID string) ([]Principal, error)

	// GetPublicKeysForConversation returns the key map the envelope codec
	// seals against. The codec has no other store access.
	GetPublicKeysForConversation(ctx context.Context, conversationID string) (map[PrincipalID]string, error)

	CreateMessage(ctx context.Context, draft MessageDraft) (StoredMessage, error)
	GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error)

	// UpdateMessageStatus records a per-recipient status and returns the
	// original sender's id so the engine can target the status fanout.
	UpdateMessageStatus(ctx context.Context, messageID string, principalID PrincipalID, status MessageStatus) (PrincipalID, error)
}

// IdentityStore persists the local principal's key pair, encrypted at rest.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
}

// PresenceTracker maintains per-conversation typing marks with a TTL.
// Expiry is lazy: a stale mark is simply absent from LiveTypers.
type PresenceTracker interface {
	SetTyping(ctx context.Context, conversationID string, principalID PrincipalID, isTyping bool) error
	LiveTypers(ctx context.Context, conversationID string) ([]PrincipalID, error)
}

// Conn is one authenticated transport connection as the registry and the
// engine see it. Send must preserve per-connection FIFO order; sends on a
// closed connection return an error and are skipped by fanout.
type Conn interface {
	Send(frame any) error
	Close() error
}

// Directory is the client-side view of the server's REST surface.
type Directory interface {
	Register(ctx context.Context, username, publicKey string) (Principal, error)
	GetPrincipal(ctx context.Context, id PrincipalID) (Principal, error)
	CreateConversation(ctx context.Context, kind ConversationKind, members []PrincipalID) (Conversation, error)
	ConversationKeys(ctx context.Context, conversationID string) (map[PrincipalID]string, error)
	ConversationMessages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error)
}
