package server

import (
	"net/http"
	"strconv"

	"github.com/aungkyaw/grn-automation/internal/server/middleware"
)

const (
	defaultStatsDays = 30
	maxStatsDays     = 365
)

// handleStats aggregates run and posting outcomes over a trailing
// window. Staff callers see every user's runs; everyone else sees only
// their own.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r)
	if !ok {
		s.respondError(w, &ValidationError{Message: "no caller identity"})
		return
	}

	days := defaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxStatsDays {
			s.respondError(w, &ValidationError{Message: "days must be between 1 and 365"})
			return
		}
		days = parsed
	}

	stats, err := s.db.GetStats(r.Context(), identity.Subject, identity.Staff, days)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}
