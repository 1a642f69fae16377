package store_test

import (
	"context"
	"errors"
	"testing"

	"sotto/internal/domain"
	"sotto/internal/store"
)

func seedConversation(t *testing.T, m *store.Memory) (domain.Conversation, domain.Principal, domain.Principal) {
	t.Helper()
	ctx := context.Background()

	alice, err := m.CreatePrincipal(ctx, "alice", "pub-a")
	if err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	bob, err := m.CreatePrincipal(ctx, "bob", "pub-b")
	if err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	conv, err := m.CreateConversation(ctx, domain.ConversationDirect, []domain.PrincipalID{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	return conv, alice, bob
}

func TestMemory_ConversationMembersAndKeys(t *testing.T) {
	m := store.NewMemory()
	conv, alice, bob := seedConversation(t, m)
	ctx := context.Background()

	members, err := m.GetConversationMembers(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversationMembers: %v", err)
	}
	if len(members) != 2 || members[0].ID != alice.ID || members[1].ID != bob.ID {
		t.Fatalf("members %v: creation order not preserved", members)
	}

	keys, err := m.GetPublicKeysForConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetPublicKeysForConversation: %v", err)
	}
	if keys[alice.ID] != "pub-a" || keys[bob.ID] != "pub-b" {
		t.Fatalf("key map %v", keys)
	}

	if _, err := m.GetConversationMembers(ctx, "nope"); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("got %v, want ErrConversationNotFound", err)
	}
}

func TestMemory_CreateConversation_UnknownMember(t *testing.T) {
	m := store.NewMemory()
	_, err := m.CreateConversation(context.Background(), domain.ConversationDirect, []domain.PrincipalID{"ghost"})
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("got %v, want ErrPrincipalNotFound", err)
	}
}

func TestMemory_MessagesAndStatus(t *testing.T) {
	m := store.NewMemory()
	conv, alice, bob := seedConversation(t, m)
	ctx := context.Background()

	env := domain.Envelope{
		Ciphertext:  []byte{1},
		Nonce:       []byte{2},
		WrappedKeys: map[domain.PrincipalID][]byte{alice.ID: {3}, bob.ID: {4}},
	}
	msg, err := m.CreateMessage(ctx, domain.MessageDraft{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Envelope:       env,
		MessageType:    "text",
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if msg.ID == "" || msg.SenderUsername != "alice" {
		t.Fatalf("stored message %+v", msg)
	}

	list, err := m.GetConversationMessages(ctx, conv.ID, 10)
	if err != nil {
		t.Fatalf("GetConversationMessages: %v", err)
	}
	if len(list) != 1 || list[0].ID != msg.ID {
		t.Fatalf("history %v", list)
	}

	sender, err := m.UpdateMessageStatus(ctx, msg.ID, bob.ID, domain.StatusRead)
	if err != nil {
		t.Fatalf("UpdateMessageStatus: %v", err)
	}
	if sender != alice.ID {
		t.Fatalf("sender %s, want %s", sender, alice.ID)
	}

	if _, err := m.UpdateMessageStatus(ctx, "nope", bob.ID, domain.StatusRead); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("got %v, want ErrMessageNotFound", err)
	}
}

func TestMemory_CreateMessage_UnknownConversation(t *testing.T) {
	m := store.NewMemory()
	_, err := m.CreateMessage(context.Background(), domain.MessageDraft{ConversationID: "nope"})
	if !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("got %v, want ErrConversationNotFound", err)
	}
}
