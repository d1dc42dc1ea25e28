package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type healthResponse struct {
	Healthy            bool     `json:"healthy"`
	LastUpdated        string   `json:"last_updated,omitempty"`
	LastAttempt        string   `json:"last_attempt,omitempty"`
	LastSuccess        string   `json:"last_success,omitempty"`
	LastError          string   `json:"last_error,omitempty"`
	ConsecutiveFailure int      `json:"consecutive_failures"`
	LatestVersion      string   `json:"latest_version,omitempty"`
	LastDurationMs     int64    `json:"last_duration_ms,omitempty"`
	AgeMinutes         *float64 `json:"age_minutes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	meta := s.store.ReadRunMeta()
	version, err := s.store.ReadLatestVersion()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	age := minutesSince(meta.LastSuccess)
	healthy := meta.LastSuccess != "" &&
		(age == nil || *age < 720) &&
		meta.ConsecutiveFailure < 3

	writeJSON(w, http.StatusOK, healthResponse{
		Healthy:            healthy,
		LastUpdated:        meta.LastUpdated,
		LastAttempt:        meta.LastAttempt,
		LastSuccess:        meta.LastSuccess,
		LastError:          meta.LastError,
		ConsecutiveFailure: meta.ConsecutiveFailure,
		LatestVersion:      version,
		LastDurationMs:     meta.LastDurationMs,
		AgeMinutes:         age,
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	data, ok, err := s.store.ReadLatestIndicators()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No data yet.")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleFredRaw(w http.ResponseWriter, r *http.Request) {
	data, ok, err := s.store.ReadLatestFredRaw()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No data yet.")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleIndeedRaw(w http.ResponseWriter, r *http.Request) {
	data, ok, err := s.store.ReadLatestIndeedRaw()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No data yet.")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ReadRunLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "runs": runs})
}

// handleRefresh requires a bearer token matching the configured
// REFRESH_TOKEN, compared case-insensitively on the "Bearer" scheme.
// Grounded on Outblock-flowindex's adminAuthMiddleware token check.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refreshTok == "" || !bearerMatches(r.Header.Get("Authorization"), s.refreshTok) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res := s.orch.Run(r.Context(), "manual")
	switch {
	case res.Skipped:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "refresh_locked", "reason": res.Reason})
	case !res.OK:
		writeError(w, http.StatusInternalServerError, res.Error)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":           true,
			"generated_at": res.GeneratedAt,
			"version":      res.Version,
			"warnings":     res.Warnings,
			"run_id":       res.RunID,
		})
	}
}

func bearerMatches(header, token string) bool {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	return strings.TrimSpace(header[len(prefix):]) == token
}
