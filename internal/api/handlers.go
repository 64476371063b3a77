package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/collector"
	"github.com/Sternrassler/activity-collector/pkg/jobs"
	"github.com/Sternrassler/activity-collector/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
)

const timeFormat = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleCollect accepts a JSON array of user names and starts a job.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var users []string
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&users); err != nil {
		s.writeError(w, http.StatusBadRequest, "body must be a JSON array of user names")
		return
	}

	job, err := s.jobs.Start(r.Context(), users, s.consumer)
	switch {
	case err == nil:
	case errors.Is(err, collector.ErrEmptyBatch), errors.Is(err, collector.ErrInvalidUser):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		s.logger.Error().Err(err).Int("users", len(users)).Msg("Failed to start job")
		s.writeError(w, http.StatusInternalServerError, "failed to start job")
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID)
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.jobs.Job(r.Context(), id)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, job)
	case errors.Is(err, jobs.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
	default:
		s.logger.Error().Err(err).Str("job_id", id).Msg("Failed to load job")
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
	}
}

type quotaResponse struct {
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	ResetAt    string `json:"reset_at"`
	LastUpdate string `json:"last_update"`
	Healthy    bool   `json:"healthy"`
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	if s.quota == nil {
		s.writeError(w, http.StatusNotFound, "quota tracking disabled")
		return
	}

	state, err := s.quota.GetState(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, ratelimit.ErrNoState):
		s.writeError(w, http.StatusNotFound, "no quota observed yet")
		return
	default:
		s.logger.Error().Err(err).Msg("Failed to read quota state")
		s.writeError(w, http.StatusInternalServerError, "failed to read quota state")
		return
	}

	s.writeJSON(w, http.StatusOK, quotaResponse{
		Limit:      state.Limit,
		Remaining:  state.Remaining,
		ResetAt:    state.ResetAt.UTC().Format(timeFormat),
		LastUpdate: state.LastUpdate.UTC().Format(timeFormat),
		Healthy:    state.IsHealthy,
	})
}
