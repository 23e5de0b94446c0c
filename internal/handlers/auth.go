package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/citizenwatch/roadwatch-server/internal/services"
)

// AuthHandler handles admin login and logout
type AuthHandler struct {
	gate         *services.AccessGate
	secureCookie bool
	logger       *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler. secureCookie marks the session
// cookie Secure and should be set when served over HTTPS.
func NewAuthHandler(gate *services.AccessGate, secureCookie bool, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{gate: gate, secureCookie: secureCookie, logger: logger}
}

// Login handles POST /login
// Accepts JSON or form credentials. The session token is returned in the
// body and also set as an HttpOnly cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	token, err := h.gate.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Warnw("Failed admin login", "username", req.Username)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	h.logger.Infow("Admin logged in", "username", req.Username)
	respondJSON(w, http.StatusOK, models.LoginResponse{Message: "Login successful", Token: token})
}

// Logout handles POST /logout by clearing the session cookie. Tokens do not
// expire, so a copied bearer token stays valid.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
