package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"sotto/internal/domain"
)

type createPrincipalRequest struct {
	Username  string `json:"username"`
	PublicKey string `json:"publicKey"`
}

type createConversationRequest struct {
	Kind      domain.ConversationKind `json:"kind"`
	MemberIDs []domain.PrincipalID    `json:"memberIds"`
}

func (s *Server) createPrincipal(w http.ResponseWriter, r *http.Request) {
	var req createPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.PublicKey == "" {
		http.Error(w, "username and publicKey are required", http.StatusBadRequest)
		return
	}

	p, err := s.store.CreatePrincipal(r.Context(), req.Username, req.PublicKey)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getPrincipal(w http.ResponseWriter, r *http.Request) {
	id := domain.PrincipalID(mux.Vars(r)["id"])
	p, err := s.store.GetPrincipal(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Kind != domain.ConversationDirect && req.Kind != domain.ConversationGroup {
		http.Error(w, "kind must be direct or group", http.StatusBadRequest)
		return
	}
	if len(req.MemberIDs) < 2 {
		http.Error(w, "a conversation needs at least two members", http.StatusBadRequest)
		return
	}
	if req.Kind == domain.ConversationDirect && len(req.MemberIDs) != 2 {
		http.Error(w, "a direct conversation has exactly two members", http.StatusBadRequest)
		return
	}

	conv, err := s.store.CreateConversation(r.Context(), req.Kind, req.MemberIDs)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conv)
}

// conversationKeys serves the principal-to-public-key map senders seal
// against. Private keys never exist server-side, so this is the only key
// material the surface can hand out.
func (s *Server) conversationKeys(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	keys, err := s.store.GetPublicKeysForConversation(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

func (s *Server) conversationMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	msgs, err := s.store.GetConversationMessages(r.Context(), id, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPrincipalNotFound),
		errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error().Err(err).Msg("store operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
