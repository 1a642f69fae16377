package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sotto/internal/domain"
)

// errNotFound marks a 404 before the caller maps it to a domain sentinel.
var errNotFound = errors.New("not found")

// HTTP talks to the server's REST surface.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the directory at base (e.g.
// "http://localhost:8080").
func NewHTTP(base string) *HTTP { return &HTTP{Base: base, HTTP: http.DefaultClient} }

func (c *HTTP) Register(ctx context.Context, username, publicKey string) (domain.Principal, error) {
	var out domain.Principal
	err := c.post(ctx, "/api/principals", struct {
		Username  string `json:"username"`
		PublicKey string `json:"publicKey"`
	}{Username: username, PublicKey: publicKey}, &out)
	return out, err
}

func (c *HTTP) GetPrincipal(ctx context.Context, id domain.PrincipalID) (domain.Principal, error) {
	var out domain.Principal
	err := c.getJSON(ctx, "/api/principals/"+url.PathEscape(string(id)), &out)
	if errors.Is(err, errNotFound) {
		return domain.Principal{}, domain.ErrPrincipalNotFound
	}
	return out, err
}

func (c *HTTP) CreateConversation(ctx context.Context, kind domain.ConversationKind, members []domain.PrincipalID) (domain.Conversation, error) {
	var out domain.Conversation
	err := c.post(ctx, "/api/conversations", struct {
		Kind      domain.ConversationKind `json:"kind"`
		MemberIDs []domain.PrincipalID    `json:"memberIds"`
	}{Kind: kind, MemberIDs: members}, &out)
	return out, err
}

func (c *HTTP) ConversationKeys(ctx context.Context, conversationID string) (map[domain.PrincipalID]string, error) {
	var out map[domain.PrincipalID]string
	err := c.getJSON(ctx, "/api/conversations/"+url.PathEscape(conversationID)+"/keys", &out)
	if errors.Is(err, errNotFound) {
		return nil, domain.ErrConversationNotFound
	}
	return out, err
}

func (c *HTTP) ConversationMessages(ctx context.Context, conversationID string, limit int) ([]domain.StoredMessage, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.StoredMessage
	err := c.getJSON(ctx, path, &out)
	return out, err
}

func (c *HTTP) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("directory post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("directory get %s: %w", path, errNotFound)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("directory get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ domain.Directory = (*HTTP)(nil)
