package domain

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates wire frames. The schema is symmetric: both sides
// decode the same JSON objects, keyed by the "type" field.
type FrameType string

const (
	FrameAuthenticate        FrameType = "authenticate"
	FrameAuthenticated       FrameType = "authenticated"
	FrameSendMessage         FrameType = "send_message"
	FrameNewMessage          FrameType = "new_message"
	FrameTyping              FrameType = "typing"
	FrameTypingStatus        FrameType = "typing_status"
	FrameMessageStatus       FrameType = "message_status"
	FrameMessageStatusUpdate FrameType = "message_status_update"
	FrameError               FrameType = "error"
)

// Authenticate is the only frame accepted before a connection owns a
// principal.
type Authenticate struct {
	Type        FrameType   `json:"type"`
	PrincipalID PrincipalID `json:"principalId"`
}

// Authenticated acknowledges a successful authenticate frame.
type Authenticated struct {
	Type        FrameType   `json:"type"`
	PrincipalID PrincipalID `json:"principalId"`
}

// SendMessage carries an encrypted envelope into a conversation.
type SendMessage struct {
	Type           FrameType         `json:"type"`
	ConversationID string            `json:"conversationId"`
	Envelope       Envelope          `json:"envelope"`
	MessageType    string            `json:"messageType"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewMessage fans a stored message out to every member connection.
type NewMessage struct {
	Type    FrameType     `json:"type"`
	Message StoredMessage `json:"message"`
}

// Typing reports the sender's typing state for a conversation.
type Typing struct {
	Type           FrameType `json:"type"`
	ConversationID string    `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
}

// TypingStatus relays a member's typing state to the other members.
type TypingStatus struct {
	Type           FrameType   `json:"type"`
	ConversationID string      `json:"conversationId"`
	PrincipalID    PrincipalID `json:"principalId"`
	Username       string      `json:"username"`
	IsTyping       bool        `json:"isTyping"`
}

// MessageStatusFrame sets a delivery status on a message.
type MessageStatusFrame struct {
	Type           FrameType     `json:"type"`
	MessageID      string        `json:"messageId"`
	ConversationID string        `json:"conversationId"`
	Status         MessageStatus `json:"status"`
}

// MessageStatusUpdate notifies the original sender of a status change.
type MessageStatusUpdate struct {
	Type        FrameType     `json:"type"`
	MessageID   string        `json:"messageId"`
	PrincipalID PrincipalID   `json:"principalId"`
	Status      MessageStatus `json:"status"`
}

// ErrorFrame reports a protocol-level failure over the same connection.
// It never closes the connection.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

// NewErrorFrame builds an error frame with the given human-readable message.
func NewErrorFrame(msg string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Message: msg}
}

// DecodeFrame peeks the type discriminator and unmarshals the matching
// payload struct. Unknown types return the raw type with a nil payload;
// the caller decides whether that is an error (it is not, post-auth).
func DecodeFrame(data []byte) (FrameType, any, error) {
	var head struct {
		Type FrameType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}

	var payload any
	switch head.Type {
	case FrameAuthenticate:
		payload = &Authenticate{}
	case FrameAuthenticated:
		payload = &Authenticated{}
	case FrameSendMessage:
		payload = &SendMessage{}
	case FrameNewMessage:
		payload = &NewMessage{}
	case FrameTyping:
		payload = &Typing{}
	case FrameTypingStatus:
		payload = &TypingStatus{}
	case FrameMessageStatus:
		payload = &MessageStatusFrame{}
	case FrameMessageStatusUpdate:
		payload = &MessageStatusUpdate{}
	case FrameError:
		payload = &ErrorFrame{}
	default:
		return head.Type, nil, nil
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return head.Type, nil, fmt.Errorf("decode %s frame: %w", head.Type, err)
	}
	return head.Type, payload, nil
}
