package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns returns the most recent runs. The "limit" query parameter
// caps the count; zero or absent returns all runs.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})

			return
		}

		limit = parsed
	}

	runs, err := s.store.GetRuns(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing runs"})

		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns a single run by ID.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid run id"})

		return
	}

	run, err := s.store.GetRun(r.Context(), uint(id))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})

		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleRunResults returns all result cells for a run.
func (s *server) handleRunResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid run id"})

		return
	}

	if _, err := s.store.GetRun(r.Context(), uint(id)); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})

		return
	}

	results, err := s.store.GetRunResults(r.Context(), uint(id))
	if err != nil {
		s.log.WithError(err).Error("Failed to list run results")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing results"})

		return
	}

	writeJSON(w, http.StatusOK, results)
}

// handleProviderResults returns a provider's most recent result cells.
func (s *server) handleProviderResults(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})

			return
		}

		limit = parsed
	}

	results, err := s.store.GetProviderResults(r.Context(), name, limit)
	if err != nil {
		s.log.WithError(err).Error("Failed to list provider results")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing results"})

		return
	}

	writeJSON(w, http.StatusOK, results)
}

// handleProviderStats returns all-time aggregates per provider.
func (s *server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetProviderStats(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to aggregate provider stats")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "aggregating stats"})

		return
	}

	writeJSON(w, http.StatusOK, stats)
}
