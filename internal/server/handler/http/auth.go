// Package http provides HTTP handlers for authentication and share
// management.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/buzzdrop/buzzdrop/internal/middleware"
)

// AuthService defines the authentication operations required by the
// HTTP handlers.
type AuthService interface {
	// Login verifies credentials and returns a session token on success.
	Login(name, password string) (string, bool)
	// Logout invalidates a session token.
	Logout(token string)
}

// AuthHandler handles HTTP requests for login and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	// Login is the account name.
	Login string `json:"login"`
	// Password is the account password. It authenticates the account only
	// and has nothing to do with any share's encryption password.
	Password string `json:"password"`
}

// Login handles POST /api/login. On valid credentials it sets the session
// cookie and returns the username.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	token, ok := h.AuthService.Login(req.Login, req.Password)
	if !ok {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"user":   req.Login,
	})
}

// Logout handles POST /api/logout. It invalidates the session and clears
// the cookie. Requests without a session are a no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookie); err == nil {
		h.AuthService.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
