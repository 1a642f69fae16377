package app

import (
	"net/http"
	"strings"

	"sotto/internal/directory"
	"sotto/internal/domain"
	"sotto/internal/keystore"
	"sotto/internal/session"
)

// Wire bundles the keystore, directory client and realtime session for
// the CLI.
type Wire struct {
	Keystore  *keystore.FileStore
	Directory domain.Directory
	Session   *session.Session
	HTTP      *http.Client
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	dir := directory.NewHTTP(cfg.ServerURL)
	dir.HTTP = httpClient

	sess := session.New(
		session.NewWebsocketDialer(),
		WebsocketURL(cfg.ServerURL),
		cfg.Log,
	)

	return &Wire{
		Keystore:  keystore.NewFileStore(cfg.Home),
		Directory: dir,
		Session:   sess,
		HTTP:      httpClient,
	}, nil
}

// WebsocketURL derives the realtime endpoint from the server base URL.
func WebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimRight(base, "/") + "/ws"
}
