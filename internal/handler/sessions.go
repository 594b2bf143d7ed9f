package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/middleware"
	"github.com/sakif/notekeeper/internal/service"
)

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// SessionHandler serves login and logout.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// HandleLogin exchanges credentials for a bearer token.
//
// HTTP: POST /sessions
// REQUEST BODY: {"username": "alice", "password": "s3cret"}
// RESPONSE: 200 {"token": "<jwt>"}
//
// Wrong password and unknown user both answer 401 with the same message.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			middleware.TrackAuthAttempt("failure")
		}
		writeError(w, r, h.logger, err)
		return
	}

	middleware.TrackAuthAttempt("success")
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// HandleLogout revokes the token the request was made with.
//
// HTTP: DELETE /sessions
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.Logout(r.Context(), caller.Token); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
