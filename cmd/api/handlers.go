package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/logging"
)

type messageResponse struct {
	Message string `json:"message"`
}

type conversationsResponse struct {
	Conversations []chat.ConversationSummary `json:"conversations"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleHistory returns the caller's transcript. Fetching history also
// acknowledges the admin's replies.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, chat.ErrAuth)
		return
	}

	h, err := s.history.GetHistory(r.Context(), id.SubjectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleAdminChats lists every conversation for the admin overview.
func (s *Server) handleAdminChats(w http.ResponseWriter, r *http.Request) {
	list, err := s.history.ListConversations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationsResponse{Conversations: list})
}

// handleSocket upgrades to a websocket and serves it until the peer leaves.
// Authentication happens per event, not at upgrade.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		logging.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	s.handle.ServeSocket(r.Context(), ws)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			logging.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps the domain error taxonomy onto HTTP. Store outages surface
// as a generic "service busy" so backend details never reach clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrAuth):
		writeMessage(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, chat.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, chat.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		logging.Warn().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		writeMessage(w, http.StatusServiceUnavailable, "service busy")
	default:
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}
