package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notekeeper/internal/service"
)

type createTagRequest struct {
	Name *string `json:"name" validate:"required"`
}

type patchTagRequest struct {
	Name *string `json:"name"`
}

// TagHandler serves the caller's tags.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// HTTP: GET /tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tags, err := h.tags.List(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// HTTP: POST /tags
// REQUEST BODY: {"name": "work"}
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req createTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tag, err := h.tags.Create(r.Context(), caller.UserID, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

// HTTP: PATCH /tags/{id}
func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req patchTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tag, err := h.tags.Update(r.Context(), caller.UserID, r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// HTTP: DELETE /tags/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.tags.Delete(r.Context(), caller.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
