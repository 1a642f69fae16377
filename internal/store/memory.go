package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sotto/internal/domain"
)

// Memory is an in-memory domain.Store.
type Memory struct {
	mu            sync.RWMutex
	principals    map[domain.PrincipalID]domain.Principal
	conversations map[string]domain.Conversation
	messages      map[string]domain.StoredMessage
	byConv        map[string][]string // conversation id -> message ids, creation order
	statuses      map[string]map[domain.PrincipalID]domain.MessageStatus
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		principals:    make(map[domain.PrincipalID]domain.Principal),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string]domain.StoredMessage),
		byConv:        make(map[string][]string),
		statuses:      make(map[string]map[domain.PrincipalID]domain.MessageStatus),
	}
}

// CreatePrincipal registers a principal with its public key.
func (m *Memory) CreatePrincipal(_ context.Context, username, publicKey string) (domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := domain.Principal{
		ID:        domain.PrincipalID(uuid.NewString()),
		Username:  username,
		PublicKey: publicKey,
		CreatedAt: time.Now().UTC(),
	}
	m.principals[p.ID] = p
	return p, nil
}

// GetPrincipal looks a principal up by id.
func (m *Memory) GetPrincipal(_ context.Context, id domain.PrincipalID) (domain.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.principals[id]
	if !ok {
		return domain.Principal{}, domain.ErrPrincipalNotFound
	}
	return p, nil
}

// CreateConversation creates an immutable member set. Members are kept in
// the order given; there is no add/remove after creation.
func (m *Memory) CreateConversation(_ context.Context, kind domain.ConversationKind, members []domain.PrincipalID) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := domain.Conversation{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	for _, id := range members {
		p, ok := m.principals[id]
		if !ok {
			return domain.Conversation{}, fmt.Errorf("member %s: %w", id, domain.ErrPrincipalNotFound)
		}
		conv.Members = append(conv.Members, p)
	}
	m.conversations[conv.ID] = conv
	return conv, nil
}

// GetConversationMembers returns the member principals.
func (m *Memory) GetConversationMembers(_ context.Context, conversationID string) ([]domain.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return append([]domain.Principal(nil), conv.Members...), nil
}

// GetPublicKeysForConversation returns the key map the codec seals against.
func (m *Memory) GetPublicKeysForConversation(_ context.Context, conversationID string) (map[domain.PrincipalID]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	out := make(map[domain.PrincipalID]string, len(conv.Members))
	for _, p := range conv.Members {
		out[p.ID] = p.PublicKey
	}
	return out, nil
}

// CreateMessage persists a draft and returns the stored message.
func (m *Memory) CreateMessage(_ context.Context, draft domain.MessageDraft) (domain.StoredMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[draft.ConversationID]
	if !ok {
		return domain.StoredMessage{}, domain.ErrConversationNotFound
	}
	var senderName string
	for _, p := range conv.Members {
		if p.ID == draft.SenderID {
			senderName = p.Username
		}
	}

	msg := domain.StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: draft.ConversationID,
		SenderID:       draft.SenderID,
		SenderUsername: senderName,
		Envelope:       draft.Envelope,
		MessageType:    draft.MessageType,
		Metadata:       draft.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[msg.ID] = msg
	m.byConv[msg.ConversationID] = append(m.byConv[msg.ConversationID], msg.ID)
	return msg, nil
}

// GetConversationMessages returns up to limit most recent messages, oldest
// first.
func (m *Memory) GetConversationMessages(_ context.Context, conversationID string, limit int) ([]domain.StoredMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, domain.ErrConversationNotFound
	}
	ids := m.byConv[conversationID]
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	out := make([]domain.StoredMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.messages[id])
	}
	return out, nil
}

// UpdateMessageStatus records a per-recipient status and returns the
// original sender so the engine can target its status fanout.
func (m *Memory) UpdateMessageStatus(_ context.Context, messageID string, principalID domain.PrincipalID, status domain.MessageStatus) (domain.PrincipalID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[messageID]
	if !ok {
		return "", domain.ErrMessageNotFound
	}
	set, ok := m.statuses[messageID]
	if !ok {
		set = make(map[domain.PrincipalID]domain.MessageStatus)
		m.statuses[messageID] = set
	}
	set[principalID] = status
	return msg.SenderID, nil
}

// Compile-time assertion that Memory implements domain.Store.
var _ domain.Store = (*Memory)(nil)
