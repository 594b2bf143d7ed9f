package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// Validation limits for notes.
const (
	MaxTitleLength   = 200
	MaxContentLength = 100000
	MaxNoteLabels    = 50
)

// NoteInput carries the fields of a create or patch request.
// A nil field was not sent.
type NoteInput struct {
	Title    *string
	Content  *string
	Tags     *[]string
	Reminder *string
}

// NoteService handles business logic for notes. Every method is scoped to
// the calling user; other users' notes are indistinguishable from missing.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

// NewNoteService creates a new NoteService.
func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the caller's notes in creation order. Never nil.
func (s *NoteService) List(ctx context.Context, userID string) ([]model.Note, error) {
	notes, err := s.repo.ListNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Create validates and saves a new note. Title and content are required
// and trimmed; tags are trimmed with empty entries dropped; reminder must be
// an RFC 3339 timestamp.
func (s *NoteService) Create(ctx context.Context, userID string, in NoteInput) (*model.Note, error) {
	// === VALIDATION ===
	title, ok := trimmed(in.Title)
	if !ok {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	content, ok := trimmed(in.Content)
	if !ok {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if err := checkNoteLengths(title, content); err != nil {
		return nil, err
	}

	note := &model.Note{
		UserID:  userID,
		Title:   title,
		Content: content,
		Tags:    []string{},
	}

	if in.Tags != nil {
		labels, err := noteLabels(*in.Tags)
		if err != nil {
			return nil, err
		}
		note.Tags = labels
	}
	if raw, ok := trimmed(in.Reminder); ok {
		r, err := parseReminder(raw)
		if err != nil {
			return nil, err
		}
		note.Reminder = &r
	}

	// === PERSIST ===
	if err := s.repo.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("userID", userID),
	)
	return note, nil
}

// Update applies the provided fields.
//
// Strings that are empty after trimming are skipped rather than rejected:
// "empty means no-op". A provided tags array replaces the old one, so []
// clears the labels.
func (s *NoteService) Update(ctx context.Context, userID, id string, in NoteInput) (*model.Note, error) {
	title, setTitle := trimmed(in.Title)
	content, setContent := trimmed(in.Content)
	if err := checkNoteLengths(title, content); err != nil {
		return nil, err
	}

	var labels []string
	if in.Tags != nil {
		var err error
		if labels, err = noteLabels(*in.Tags); err != nil {
			return nil, err
		}
	}

	var reminder *time.Time
	if raw, ok := trimmed(in.Reminder); ok {
		r, err := parseReminder(raw)
		if err != nil {
			return nil, err
		}
		reminder = &r
	}

	note, err := s.repo.UpdateNote(ctx, userID, id, func(n *model.Note) error {
		if setTitle {
			n.Title = title
		}
		if setContent {
			n.Content = content
		}
		if labels != nil {
			n.Tags = labels
		}
		if reminder != nil {
			n.Reminder = reminder
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating note %s: %w", id, err)
	}

	s.logger.Info("note updated", slog.String("id", id), slog.String("userID", userID))
	return note, nil
}

// Delete removes a note owned by userID.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteNote(ctx, userID, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting note %s: %w", id, err)
	}

	s.logger.Info("note deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

func checkNoteLengths(title, content string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}

func noteLabels(raw []string) ([]string, error) {
	labels := cleanLabels(raw)
	if len(labels) > MaxNoteLabels {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("a note can carry at most %d tags", MaxNoteLabels))
	}
	return labels, nil
}

func parseReminder(raw string) (time.Time, error) {
	r, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("reminder", "reminder must be an RFC 3339 timestamp")
	}
	return r.UTC(), nil
}
