// Package handlers contains HTTP request handlers for the report server.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/services"
)

const sessionCookie = "session"

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error onto its HTTP status.
func respondServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, services.ErrStorage):
		logger.Errorw("Storage failure", "error", err)
		respondError(w, http.StatusBadGateway, "Storage is unavailable, please try again")
	default:
		logger.Errorw("Unexpected error", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// sessionToken returns the bearer token of r, falling back to the session
// cookie set at login.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
