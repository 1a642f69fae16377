package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sotto/internal/domain"
	"sotto/internal/engine"
	"sotto/internal/presence"
	"sotto/internal/registry"
	"sotto/internal/server"
	"sotto/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	eng := engine.New(mem, registry.New(zerolog.Nop()), presence.NewTracker(), zerolog.Nop())
	srv := server.New(mem, eng, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, mem
}

func postJSON(t *testing.T, url string, in, out any) *http.Response {
	t.Helper()
	body, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode/100 == 2 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func registerPrincipal(t *testing.T, base, username string) domain.Principal {
	t.Helper()
	var p domain.Principal
	resp := postJSON(t, base+"/api/principals", map[string]string{
		"username":  username,
		"publicKey": "pk-" + username,
	}, &p)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create principal: status %d", resp.StatusCode)
	}
	return p
}

func TestRest_PrincipalLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := registerPrincipal(t, ts.URL, "alice")
	if alice.ID == "" || alice.Username != "alice" {
		t.Fatalf("created principal %+v", alice)
	}

	resp, err := http.Get(ts.URL + "/api/principals/" + string(alice.ID))
	if err != nil {
		t.Fatalf("get principal: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get principal: status %d", resp.StatusCode)
	}
	var got domain.Principal
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PublicKey != "pk-alice" {
		t.Fatalf("public key %q", got.PublicKey)
	}

	resp, err = http.Get(ts.URL + "/api/principals/nope")
	if err != nil {
		t.Fatalf("get missing principal: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing principal: status %d, want 404", resp.StatusCode)
	}
}

func TestRest_CreatePrincipalValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/principals", map[string]string{"username": "alice"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing publicKey: status %d, want 400", resp.StatusCode)
	}
}

func TestRest_ConversationKeysAndValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := registerPrincipal(t, ts.URL, "alice")
	bob := registerPrincipal(t, ts.URL, "bob")

	var conv domain.Conversation
	resp := postJSON(t, ts.URL+"/api/conversations", map[string]any{
		"kind":      "direct",
		"memberIds": []domain.PrincipalID{alice.ID, bob.ID},
	}, &conv)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create conversation: status %d", resp.StatusCode)
	}
	if len(conv.Members) != 2 {
		t.Fatalf("members %+v", conv.Members)
	}

	// Key map covers exactly the membership.
	keysResp, err := http.Get(ts.URL + "/api/conversations/" + conv.ID + "/keys")
	if err != nil {
		t.Fatalf("get keys: %v", err)
	}
	defer keysResp.Body.Close()
	var keys map[domain.PrincipalID]string
	if err := json.NewDecoder(keysResp.Body).Decode(&keys); err != nil {
		t.Fatalf("decode keys: %v", err)
	}
	if len(keys) != 2 || keys[alice.ID] != "pk-alice" || keys[bob.ID] != "pk-bob" {
		t.Fatalf("key map %v", keys)
	}

	// A direct conversation takes exactly two members.
	resp = postJSON(t, ts.URL+"/api/conversations", map[string]any{
		"kind":      "direct",
		"memberIds": []domain.PrincipalID{alice.ID, bob.ID, "charlie"},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("three-member direct: status %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/api/conversations", map[string]any{
		"kind":      "broadcast",
		"memberIds": []domain.PrincipalID{alice.ID, bob.ID},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown kind: status %d, want 400", resp.StatusCode)
	}
}

func TestRest_Healthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: status %d", resp.StatusCode)
	}
}

// dialWS opens a websocket against the test server and authenticates it.
func dialWS(t *testing.T, base string, id domain.PrincipalID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })

	auth, _ := json.Marshal(domain.Authenticate{Type: domain.FrameAuthenticate, PrincipalID: id})
	if err := ws.WriteMessage(websocket.TextMessage, auth); err != nil {
		t.Fatalf("write authenticate: %v", err)
	}
	var ack domain.Authenticated
	readFrame(t, ws, &ack)
	if ack.Type != domain.FrameAuthenticated || ack.PrincipalID != id {
		t.Fatalf("authenticated ack %+v", ack)
	}
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn, out any) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}

func TestWebsocket_RejectsFramesBeforeAuth(t *testing.T) {
	ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	typing, _ := json.Marshal(domain.Typing{Type: domain.FrameTyping, ConversationID: "c", IsTyping: true})
	if err := ws.WriteMessage(websocket.TextMessage, typing); err != nil {
		t.Fatalf("write: %v", err)
	}
	var errFrame domain.ErrorFrame
	readFrame(t, ws, &errFrame)
	if errFrame.Type != domain.FrameError || errFrame.Message != "Not authenticated" {
		t.Fatalf("error frame %+v", errFrame)
	}
}

func TestWebsocket_SendMessageFansOut(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := registerPrincipal(t, ts.URL, "alice")
	bob := registerPrincipal(t, ts.URL, "bob")

	var conv domain.Conversation
	resp := postJSON(t, ts.URL+"/api/conversations", map[string]any{
		"kind":      "direct",
		"memberIds": []domain.PrincipalID{alice.ID, bob.ID},
	}, &conv)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create conversation: status %d", resp.StatusCode)
	}

	wsAlice := dialWS(t, ts.URL, alice.ID)
	wsBob := dialWS(t, ts.URL, bob.ID)

	env := domain.Envelope{
		Ciphertext: []byte("sealed"),
		Nonce:      bytes.Repeat([]byte{1}, 12),
		WrappedKeys: map[domain.PrincipalID][]byte{
			alice.ID: []byte("wk-a"),
			bob.ID:   []byte("wk-b"),
		},
	}
	send, _ := json.Marshal(domain.SendMessage{
		Type:           domain.FrameSendMessage,
		ConversationID: conv.ID,
		Envelope:       env,
		MessageType:    "text",
	})
	if err := wsAlice.WriteMessage(websocket.TextMessage, send); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Both members receive the stored message, the sender included.
	for name, ws := range map[string]*websocket.Conn{"bob": wsBob, "alice": wsAlice} {
		var got domain.NewMessage
		readFrame(t, ws, &got)
		if got.Type != domain.FrameNewMessage {
			t.Fatalf("%s got frame %+v", name, got)
		}
		if got.Message.ConversationID != conv.ID || got.Message.SenderID != alice.ID {
			t.Fatalf("%s got message %+v", name, got.Message)
		}
		if !bytes.Equal(got.Message.Envelope.Ciphertext, env.Ciphertext) {
			t.Fatalf("%s envelope mutated in transit", name)
		}
	}

	// The message is persisted behind the history endpoint too.
	histResp, err := http.Get(fmt.Sprintf("%s/api/conversations/%s/messages?limit=10", ts.URL, conv.ID))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer histResp.Body.Close()
	var history []domain.StoredMessage
	if err := json.NewDecoder(histResp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].SenderID != alice.ID {
		t.Fatalf("history %+v", history)
	}
}

func TestWebsocket_TypingExcludesSender(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := registerPrincipal(t, ts.URL, "alice")
	bob := registerPrincipal(t, ts.URL, "bob")

	var conv domain.Conversation
	postJSON(t, ts.URL+"/api/conversations", map[string]any{
		"kind":      "direct",
		"memberIds": []domain.PrincipalID{alice.ID, bob.ID},
	}, &conv)

	wsAlice := dialWS(t, ts.URL, alice.ID)
	wsBob := dialWS(t, ts.URL, bob.ID)

	typing, _ := json.Marshal(domain.Typing{Type: domain.FrameTyping, ConversationID: conv.ID, IsTyping: true})
	if err := wsAlice.WriteMessage(websocket.TextMessage, typing); err != nil {
		t.Fatalf("send typing: %v", err)
	}

	var got domain.TypingStatus
	readFrame(t, wsBob, &got)
	if got.PrincipalID != alice.ID || got.Username != "alice" || !got.IsTyping {
		t.Fatalf("typing status %+v", got)
	}

	// The sender's own socket stays silent.
	_ = wsAlice.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := wsAlice.ReadMessage(); err == nil {
		t.Fatal("typing echoed back to the sender")
	}
}
