package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PaulBabatuyi/supportchat/internal/logging"
)

// routes builds the HTTP surface:
//
//	GET /healthz           liveness plus store ping
//	GET /metrics           prometheus
//	GET /ws                live channel (credential carried per event)
//	GET /api/chat/history  caller's transcript
//	GET /api/admin/chats   admin overview
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleSocket)

	r.Route("/api", func(r chi.Router) {
		if s.rateLimitRPM > 0 {
			r.Use(httprate.LimitByIP(s.rateLimitRPM, time.Minute))
		}
		r.Use(requireAuth(s.verifier))

		r.Get("/chat/history", s.handleHistory)
		r.With(requireAdmin).Get("/admin/chats", s.handleAdminChats)
	})

	return r
}

// accessLog writes one structured line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
