package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sotto/internal/domain"
	"sotto/internal/engine"
)

// Server wires the REST directory and the websocket endpoint over one
// store and one protocol engine.
type Server struct {
	store    domain.Store
	engine   *engine.Engine
	log      zerolog.Logger
	upgrader websocket.Upgrader
	ping     func() error
}

// Option tweaks server construction.
type Option func(*Server)

// WithHealthPing installs a backing-store probe for the health endpoint.
func WithHealthPing(ping func() error) Option {
	return func(s *Server) { s.ping = ping }
}

// New constructs a server. The engine must share the store.
func New(store domain.Store, eng *engine.Engine, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		store:  store,
		engine: eng,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/principals", s.createPrincipal).Methods(http.MethodPost)
	api.HandleFunc("/principals/{id}", s.getPrincipal).Methods(http.MethodGet)
	api.HandleFunc("/conversations", s.createConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/keys", s.conversationKeys).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", s.conversationMessages).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleWebsocket)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(); err != nil {
			s.log.Error().Err(err).Msg("health probe failed")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
