package memory

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
)

// ListNotes returns the owner's notes in insertion order.
func (db *DB) ListNotes(_ context.Context, userID string) ([]model.Note, error) {
	db.notesMu.RLock()
	defer db.notesMu.RUnlock()

	out := make([]model.Note, 0)
	for _, n := range db.notes {
		if n.UserID == userID {
			out = append(out, n.Clone())
		}
	}
	return out, nil
}

// CreateNote assigns ID and CreatedAt and appends the note.
func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	db.notesMu.Lock()
	defer db.notesMu.Unlock()

	note.ID = xid.New().String()
	note.CreatedAt = db.now().UTC()
	stored := note.Clone()

	next := append(cloneSlice(db.notes), stored)
	if err := db.persist.SaveNotes(ctx, next); err != nil {
		return fmt.Errorf("memory: creating note: %w", err)
	}
	db.notes = next
	*note = stored.Clone()
	return nil
}

func (db *DB) UpdateNote(ctx context.Context, userID, id string, apply func(*model.Note) error) (*model.Note, error) {
	db.notesMu.Lock()
	defer db.notesMu.Unlock()

	i := db.noteIndex(userID, id)
	if i < 0 {
		return nil, apperror.NotFound("note", id)
	}

	updated := db.notes[i].Clone()
	if err := apply(&updated); err != nil {
		return nil, err
	}
	updated.ID = id
	updated.UserID = userID
	updated.CreatedAt = db.notes[i].CreatedAt

	next := withReplaced(db.notes, i, updated)
	if err := db.persist.SaveNotes(ctx, next); err != nil {
		return nil, fmt.Errorf("memory: updating note %s: %w", id, err)
	}
	db.notes = next

	out := updated.Clone()
	return &out, nil
}

func (db *DB) DeleteNote(ctx context.Context, userID, id string) error {
	db.notesMu.Lock()
	defer db.notesMu.Unlock()

	i := db.noteIndex(userID, id)
	if i < 0 {
		return apperror.NotFound("note", id)
	}

	next := withRemoved(db.notes, i)
	if err := db.persist.SaveNotes(ctx, next); err != nil {
		return fmt.Errorf("memory: deleting note %s: %w", id, err)
	}
	db.notes = next
	return nil
}

// DeleteNotesByOwner removes every note owned by userID in one save.
func (db *DB) DeleteNotesByOwner(ctx context.Context, userID string) (int, error) {
	db.notesMu.Lock()
	defer db.notesMu.Unlock()

	next := make([]model.Note, 0, len(db.notes))
	for _, n := range db.notes {
		if n.UserID != userID {
			next = append(next, n)
		}
	}
	removed := len(db.notes) - len(next)
	if removed == 0 {
		return 0, nil
	}

	if err := db.persist.SaveNotes(ctx, next); err != nil {
		return 0, fmt.Errorf("memory: deleting notes of user %s: %w", userID, err)
	}
	db.notes = next
	return removed, nil
}

// noteIndex must be called with notesMu held. Notes owned by another user
// are reported as missing.
func (db *DB) noteIndex(userID, id string) int {
	for i, n := range db.notes {
		if n.ID == id && n.UserID == userID {
			return i
		}
	}
	return -1
}
