package app

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Config holds runtime wiring options for building the client app.
type Config struct {
	Home      string       // config directory, e.g. $HOME/.sotto
	ServerURL string       // server base URL, e.g. http://127.0.0.1:8080
	HTTP      *http.Client // optional; defaults to http.DefaultClient
	Log       zerolog.Logger
}
