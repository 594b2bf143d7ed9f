package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notekeeper/internal/middleware"
	"github.com/sakif/notekeeper/internal/service"
)

// createNoteRequest is the body of POST /notes.
type createNoteRequest struct {
	Title    *string   `json:"title" validate:"required"`
	Content  *string   `json:"content" validate:"required"`
	Tags     *[]string `json:"tags"`
	Reminder *string   `json:"reminder"`
}

// patchNoteRequest is the body of PATCH /notes/{id}. Every field is optional.
type patchNoteRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Tags     *[]string `json:"tags"`
	Reminder *string   `json:"reminder"`
}

// NoteHandler serves the caller's notes.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// HandleList returns the caller's notes in creation order.
//
// HTTP: GET /notes
// RESPONSE: 200 [] when there are none, never null
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	notes, err := h.notes.List(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

// HandleCreate saves a new note.
//
// HTTP: POST /notes
// REQUEST BODY: {"title": "...", "content": "...", "tags": ["work"], "reminder": "2030-01-01T09:00:00Z"}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	note, err := h.notes.Create(r.Context(), caller.UserID, service.NoteInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Reminder: req.Reminder,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.TrackNoteOperation("create")
	writeJSON(w, http.StatusCreated, note)
}

// HandleUpdate applies a partial update.
//
// HTTP: PATCH /notes/{id}
//
// Blank strings are ignored rather than rejected.
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req patchNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	note, err := h.notes.Update(r.Context(), caller.UserID, r.PathValue("id"), service.NoteInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Reminder: req.Reminder,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.TrackNoteOperation("update")
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete removes a note.
//
// HTTP: DELETE /notes/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.notes.Delete(r.Context(), caller.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.TrackNoteOperation("delete")
	w.WriteHeader(http.StatusNoContent)
}
