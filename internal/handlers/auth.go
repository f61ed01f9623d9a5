package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"promptui/internal/middleware"
	"promptui/internal/models"
	"promptui/internal/session"
)

// SessionManager creates and destroys login sessions.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	DestroyUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// Credentials looks up accounts and verifies passwords.
type Credentials interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions SessionManager
	users    Credentials
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions SessionManager, users Credentials) *Auth {
	return &Auth{sessions: sessions, users: users}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and starts a session.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if msg := validateLogin(req.Email, req.Password); msg != "" {
		respondError(w, r, badRequest("%s", msg))
		return
	}

	user, err := a.users.FindByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Unknown, deactivated and wrong-password logins look the same.
	if user == nil || !user.IsActive || !a.users.CheckPassword(user, req.Password) {
		slog.Warn("login rejected", "email", req.Email, "remote", r.RemoteAddr)
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	respondJSON(w, http.StatusOK, user)
}

// Me returns the signed-in actor.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, middleware.ActorFromCtx(r.Context()))
}

// Logout destroys the session. Logging out without a session succeeds.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll ends every session of the signed-in user, including the
// current one.
func (a *Auth) LogoutAll(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	n, err := a.sessions.DestroyUser(r.Context(), actor.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	slog.Info("user logged out everywhere", "user_id", actor.ID, "sessions", n)
	w.WriteHeader(http.StatusNoContent)
}
