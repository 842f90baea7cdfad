package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	"github.com/desertthunder/driveclone/internal/tasks"
)

// AuthHandler implements the browser Google sign-in flow.
//
// Logging out discards the job store along with the session.
type AuthHandler struct {
	drive        services.Drive
	sessions     *Sessions
	store        *store.Store
	orchestrator *tasks.Orchestrator
	logger       *log.Logger
}

func (h *AuthHandler) Routes() []string {
	return []string{
		"GET /auth/google",
		"GET /auth/google/callback",
		"GET /auth/logout",
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /auth/google":
		h.login(w, r)
	case "GET /auth/google/callback":
		h.callback(w, r)
	case "GET /auth/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, h.drive.AuthURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if err := validateOAuthState(r); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		if reason := r.URL.Query().Get("error"); reason != "" {
			writeError(w, fmt.Errorf("%w: authorization denied: %s", shared.ErrInvalidInput, reason))
			return
		}
		writeError(w, fmt.Errorf("%w: missing code parameter", shared.ErrInvalidInput))
		return
	}

	token, err := h.drive.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication failed"})
		return
	}

	id := h.sessions.Create(token)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	h.logger.Info("signed in")
	writeJSON(w, http.StatusOK, services.MessageResponse{Message: "Login successful!"})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Reset()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: "/", MaxAge: -1})

	h.drive.SetToken(nil)
	if h.orchestrator != nil {
		for _, job := range h.store.List() {
			if job.Status.IsActive() {
				h.orchestrator.Cancel(job.ID)
			}
		}
	}
	h.store.Clear()

	h.logger.Info("signed out, job list cleared")
	writeJSON(w, http.StatusOK, services.MessageResponse{Message: "Logged out"})
}

func validateOAuthState(r *http.Request) error {
	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		return fmt.Errorf("missing %s cookie", stateCookie)
	}

	queryState := r.URL.Query().Get("state")
	if queryState == "" || queryState != cookie.Value {
		return fmt.Errorf("state mismatch")
	}
	return nil
}
