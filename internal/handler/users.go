package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/service"
)

// credentialsRequest is the body of POST /users and POST /sessions.
type credentialsRequest struct {
	Username *string `json:"username" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

// updateUserRequest is the body of PATCH /users/{id}. Both fields are optional.
type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UserHandler serves account registration and management.
type UserHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, sessions *service.SessionService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /users
// REQUEST BODY: {"username": "alice", "password": "s3cret"}
// RESPONSE: 201 {"id": "...", "username": "alice", "createdAt": "..."}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// HandleUpdate changes the caller's username and/or password.
//
// HTTP: PATCH /users/{id}
//
// Only the account owner may do this. Any other id answers 404, exactly as
// if it did not exist.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownAccount(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), id, req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// HandleDelete removes the caller's account, its notes and tags, and
// revokes the token used for the request.
//
// HTTP: DELETE /users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownAccount(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// The account is gone either way; a failed revoke only means the token
	// lingers until the subject check rejects it.
	caller, _ := identity(r)
	if err := h.sessions.Logout(r.Context(), caller.Token); err != nil {
		h.logger.Warn("could not revoke token of deleted user",
			slog.String("userID", id),
			slog.String("error", err.Error()),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownAccount returns the {id} path parameter if it names the caller.
func (h *UserHandler) ownAccount(r *http.Request) (string, error) {
	caller, err := identity(r)
	if err != nil {
		return "", err
	}
	id := r.PathValue("id")
	if id != caller.UserID {
		return "", apperror.NotFound("user", id)
	}
	return id, nil
}
