package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/whydoesntmycode/blog/internal/auth"
	"github.com/whydoesntmycode/blog/internal/repository"
)

type errorBody struct {
	Error string `json:"error"`
}

type statsBody struct {
	Posts    int       `json:"posts"`
	Tags     int       `json:"tags"`
	Clients  int       `json:"sse_clients"`
	Skipped  int       `json:"skipped"`
	Hidden   int       `json:"hidden"`
	LoadedAt time.Time `json:"loaded_at"`
}

type reportBody struct {
	LoadedAt time.Time     `json:"loaded_at"`
	Accepted int           `json:"accepted"`
	Hidden   []string      `json:"hidden"`
	Skipped  []skippedBody `json:"skipped"`
}

type skippedBody struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(HCType, "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) serveAPIPosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.posts.ListPostSummaries())
}

func (s *Server) serveAPIPost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.posts.ReadPost(chi.URLParam(r, "slug"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "post not found"})
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) serveReload(w http.ResponseWriter, r *http.Request) {
	l := hlog.FromRequest(r)

	// A client hanging up must not leave the store half way through a reload.
	ctx := context.WithoutCancel(r.Context())

	err := s.posts.Reload(ctx, auth.BearerToken(r))
	switch {
	case err == nil:
		l.Info().Msg("Posts reloaded")
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrUnauthorized):
		l.Warn().Str("remote", r.RemoteAddr).Msg("Reload rejected")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, repository.ErrSourceUnavailable):
		l.Error().Err(err).Msg("Reload failed")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "posts directory is unavailable"})
	default:
		l.Error().Err(err).Msg("Reload failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "reload failed"})
	}
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request) {
	src, ok := s.posts.(StatsSource)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "report unavailable"})
		return
	}

	body := reportBody{LoadedAt: src.LoadedAt(), Hidden: []string{}, Skipped: []skippedBody{}}
	if report := src.LastReport(); report != nil {
		body.Accepted = report.Accepted
		body.Hidden = append(body.Hidden, report.Hidden...)
		for _, sk := range report.Skipped {
			body.Skipped = append(body.Skipped, skippedBody{File: sk.File, Reason: sk.Reason.Error()})
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	body := statsBody{
		Posts:   len(s.posts.ListPostSummaries()),
		Tags:    len(s.posts.Tags()),
		Clients: s.clients.Len(),
	}
	if src, ok := s.posts.(StatsSource); ok {
		if report := src.LastReport(); report != nil {
			body.Skipped = len(report.Skipped)
			body.Hidden = len(report.Hidden)
		}
		body.LoadedAt = src.LoadedAt()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serveReady(w http.ResponseWriter, r *http.Request) {
	if s.posts.Feed() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
