package domain

import "time"

// PrincipalID identifies a user. A principal holds exactly one long-lived
// asymmetric key pair; every device and tab of that user shares it.
type PrincipalID string

// Principal is a user as seen by the server and by conversation membership.
type Principal struct {
	ID        PrincipalID `json:"id"`
	Username  string      `json:"username"`
	PublicKey string      `json:"publicKey"` // base64 SPKI
	CreatedAt time.Time   `json:"createdAt"`
}

// ConversationKind distinguishes one-to-one from group conversations.
type ConversationKind string

const (
	ConversationDirect ConversationKind = "direct"
	ConversationGroup  ConversationKind = "group"
)

// Conversation is an immutable member set. Membership is fixed at creation;
// every envelope sent into it must wrap its key for exactly these members.
type Conversation struct {
	ID        string           `json:"id"`
	Kind      ConversationKind `json:"kind"`
	Members   []Principal      `json:"members"` // ordered by creation time
	CreatedAt time.Time        `json:"createdAt"`
}

// MessageStatus is a per-recipient delivery state.
type MessageStatus string

const (
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// ValidStatus reports whether s is a status a client may set.
func ValidStatus(s MessageStatus) bool {
	return s == StatusDelivered || s == StatusRead
}

// MessageDraft is what the engine hands the store for persistence.
type MessageDraft struct {
	ConversationID string            `json:"conversationId"`
	SenderID       PrincipalID       `json:"senderId"`
	Envelope       Envelope          `json:"envelope"`
	MessageType    string            `json:"messageType"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// StoredMessage is a persisted message, as fanned out in new_message frames.
type StoredMessage struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversationId"`
	SenderID       PrincipalID       `json:"senderId"`
	SenderUsername string            `json:"senderUsername"`
	Envelope       Envelope          `json:"envelope"`
	MessageType    string            `json:"messageType"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Identity holds the local principal's long-lived key pair. The private key
// never crosses a connection boundary; it only ever lives in the keystore
// and in memory on the owning device.
type Identity struct {
	ID         PrincipalID `json:"id"`
	Username   string      `json:"username"`
	PublicKey  string      `json:"publicKey"`  // base64 SPKI
	PrivateKey string      `json:"privateKey"` // base64 PKCS#8
}
