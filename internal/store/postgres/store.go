// Package postgres is the durable domain.Store implementation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sotto/internal/domain"
)

// Store persists principals, conversations, messages, and per-recipient
// statuses in Postgres. Envelopes are stored as JSONB: the server never
// needs to look inside them.
type Store struct {
	db *sql.DB
}

// New returns a store backed by db.
func New(db *sql.DB) *Store { return &Store{db: db} }

// CreatePrincipal registers a principal with its public key.
func (s *Store) CreatePrincipal(ctx context.Context, username, publicKey string) (domain.Principal, error) {
	p := domain.Principal{
		ID:        domain.PrincipalID(uuid.NewString()),
		Username:  username,
		PublicKey: publicKey,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (id, username, public_key, created_at)
		VALUES ($1, $2, $3, $4)`,
		string(p.ID), p.Username, p.PublicKey, p.CreatedAt)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("insert principal: %w", err)
	}
	return p, nil
}

// GetPrincipal looks a principal up by id.
func (s *Store) GetPrincipal(ctx context.Context, id domain.PrincipalID) (domain.Principal, error) {
	var p domain.Principal
	var pid string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, public_key, created_at
		FROM principals WHERE id = $1`, string(id)).
		Scan(&pid, &p.Username, &p.PublicKey, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Principal{}, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("select principal: %w", err)
	}
	p.ID = domain.PrincipalID(pid)
	return p, nil
}

// CreateConversation creates the conversation row and its immutable member
// rows in one transaction. Member position records creation order.
func (s *Store) CreateConversation(ctx context.Context, kind domain.ConversationKind, members []domain.PrincipalID) (domain.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Conversation{}, err
	}
	defer tx.Rollback()

	conv := domain.Conversation{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, kind, created_at)
		VALUES ($1, $2, $3)`,
		conv.ID, string(conv.Kind), conv.CreatedAt)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}

	for pos, id := range members {
		var p domain.Principal
		var pid string
		err := tx.QueryRowContext(ctx, `
			SELECT id, username, public_key, created_at
			FROM principals WHERE id = $1`, string(id)).
			Scan(&pid, &p.Username, &p.PublicKey, &p.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Conversation{}, fmt.Errorf("member %s: %w", id, domain.ErrPrincipalNotFound)
		}
		if err != nil {
			return domain.Conversation{}, fmt.Errorf("select member: %w", err)
		}
		p.ID = domain.PrincipalID(pid)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_members (conversation_id, principal_id, position)
			VALUES ($1, $2, $3)`,
			conv.ID, string(id), pos)
		if err != nil {
			return domain.Conversation{}, fmt.Errorf("insert member: %w", err)
		}
		conv.Members = append(conv.Members, p)
	}

	if err := tx.Commit(); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// GetConversationMembers returns member principals in creation order.
func (s *Store) GetConversationMembers(ctx context.Context, conversationID string) ([]domain.Principal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.username, p.public_key, p.created_at
		FROM conversation_members m
		JOIN principals p ON p.id = m.principal_id
		WHERE m.conversation_id = $1
		ORDER BY m.position`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var out []domain.Principal
	for rows.Next() {
		var p domain.Principal
		var pid string
		if err := rows.Scan(&pid, &p.Username, &p.PublicKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ID = domain.PrincipalID(pid)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrConversationNotFound
	}
	return out, nil
}

// GetPublicKeysForConversation returns the key map the codec seals against.
func (s *Store) GetPublicKeysForConversation(ctx context.Context, conversationID string) (map[domain.PrincipalID]string, error) {
	members, err := s.GetConversationMembers(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.PrincipalID]string, len(members))
	for _, p := range members {
		out[p.ID] = p.PublicKey
	}
	return out, nil
}

// CreateMessage persists a draft and returns the stored message.
func (s *Store) CreateMessage(ctx context.Context, draft domain.MessageDraft) (domain.StoredMessage, error) {
	envJSON, err := json.Marshal(draft.Envelope)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("marshal envelope: %w", err)
	}
	metaJSON, err := json.Marshal(draft.Metadata)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("marshal metadata: %w", err)
	}

	var senderName string
	err = s.db.QueryRowContext(ctx, `
		SELECT p.username
		FROM conversation_members m
		JOIN principals p ON p.id = m.principal_id
		WHERE m.conversation_id = $1 AND m.principal_id = $2`,
		draft.ConversationID, string(draft.SenderID)).Scan(&senderName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredMessage{}, domain.ErrConversationNotFound
	}
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("resolve sender: %w", err)
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, envelope, message_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ConversationID, string(msg.SenderID), envJSON, msg.MessageType, metaJSON, msg.CreatedAt)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// GetConversationMessages returns up to limit most recent messages, oldest
// first.
func (s *Store) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]domain.StoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, p.username, m.envelope, m.message_type, m.metadata, m.created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) m
		JOIN principals p ON p.id = m.sender_id
		ORDER BY m.created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredMessage
	for rows.Next() {
		var msg domain.StoredMessage
		var sid string
		var envJSON, metaJSON []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sid, &msg.SenderUsername,
			&envJSON, &msg.MessageType, &metaJSON, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.SenderID = domain.PrincipalID(sid)
		if err := json.Unmarshal(envJSON, &msg.Envelope); err != nil {
			return nil, fmt.Errorf("unmarshal envelope: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// UpdateMessageStatus records a per-recipient status and returns the
// original sender's id.
func (s *Store) UpdateMessageStatus(ctx context.Context, messageID string, principalID domain.PrincipalID, status domain.MessageStatus) (domain.PrincipalID, error) {
	var sender string
	err := s.db.QueryRowContext(ctx, `
		SELECT sender_id FROM messages WHERE id = $1`, messageID).Scan(&sender)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrMessageNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select message: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO message_statuses (message_id, principal_id, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, principal_id) DO UPDATE
		SET status = $3, updated_at = $4`,
		messageID, string(principalID), string(status), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("upsert status: %w", err)
	}
	return domain.PrincipalID(sender), nil
}

// Compile-time assertion that Store implements domain.Store.
var _ domain.Store = (*Store)(nil)
