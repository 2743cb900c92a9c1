package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PaulBabatuyi/supportchat/internal/gateway"
	"github.com/PaulBabatuyi/supportchat/internal/history"
)

// Pinger reports backend health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the collaborators behind the HTTP surface.
type Server struct {
	history  *history.Service
	handle   *gateway.Handle
	verifier gateway.Verifier
	pinger   Pinger

	origins      []string
	rateLimitRPM int
	upgrader     websocket.Upgrader
}

// newServer returns a ready-to-use Server. pinger may be nil when there is no
// external store to check.
func newServer(hist *history.Service, handle *gateway.Handle, verifier gateway.Verifier, pinger Pinger, origins []string, rateLimitRPM int) *Server {
	s := &Server{
		history:      hist,
		handle:       handle,
		verifier:     verifier,
		pinger:       pinger,
		origins:      origins,
		rateLimitRPM: rateLimitRPM,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
