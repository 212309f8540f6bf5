// Package http provides the HTTP handlers of the expense ledger API.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/GophLedger/internal/models"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates a user after validating the password confirmation.
	Register(ctx context.Context, username, password, confirm string) error
	// Authenticate returns the username when the password matches.
	Authenticate(ctx context.Context, username, password string) (models.Username, error)
}

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user models.Username) (string, error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Tokens issues the bearer token returned by Login.
	Tokens TokenIssuer
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Confirm must repeat Password. When omitted, Password is used.
	Confirm *string `json:"confirm,omitempty"`
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	User  string `json:"user"`
	Token string `json:"token"`
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	confirm := req.Password
	if req.Confirm != nil {
		confirm = *req.Confirm
	}

	if err := h.AuthService.Register(r.Context(), req.Username, req.Password, confirm); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "ok",
		"user":   req.Username,
	})
}

// Login handles POST /api/login. It checks the credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	tok, err := h.Tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{User: user.String(), Token: tok})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
