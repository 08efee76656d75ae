package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// healthHandler reports liveness and the number of known users.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthData := map[string]interface{}{
		"status":    healthStatusHealthy,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if count, err := s.users.Count(ctx); err != nil {
		slog.Warn("Server.healthHandler: failed to count users", "error", err)
		healthData["status"] = healthStatusDegraded
		healthData["error"] = "Failed to fetch user metrics"
	} else {
		healthData["users"] = count
	}

	statusCode := http.StatusOK
	if healthData["status"] == healthStatusDegraded {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}
