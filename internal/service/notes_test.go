package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestNoteCreate_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, "u1", NoteInput{
		Title:    ptr("  Groceries "),
		Content:  ptr(" milk, eggs "),
		Tags:     &[]string{" home ", "", "  ", "errands"},
		Reminder: ptr("2030-01-02T15:04:05+02:00"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if note.ID == "" || note.UserID != "u1" {
		t.Errorf("note = %+v, want an ID owned by u1", note)
	}
	if note.Title != "Groceries" || note.Content != "milk, eggs" {
		t.Errorf("Title/Content = %q/%q, want trimmed", note.Title, note.Content)
	}
	if len(note.Tags) != 2 || note.Tags[0] != "home" || note.Tags[1] != "errands" {
		t.Errorf("Tags = %v, want [home errands]", note.Tags)
	}
	want := time.Date(2030, 1, 2, 13, 4, 5, 0, time.UTC)
	if note.Reminder == nil || !note.Reminder.Equal(want) {
		t.Errorf("Reminder = %v, want %v", note.Reminder, want)
	}
}

func TestNoteCreate_DefaultsTagsToEmpty(t *testing.T) {
	env := newTestEnv(t)

	note, err := env.notes.Create(context.Background(), "u1", NoteInput{Title: ptr("t"), Content: ptr("c")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if note.Tags == nil || len(note.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty slice", note.Tags)
	}
	if note.Reminder != nil {
		t.Errorf("Reminder = %v, want nil", note.Reminder)
	}
}

func TestNoteCreate_Validation(t *testing.T) {
	tooManyTags := make([]string, MaxNoteLabels+1)
	for i := range tooManyTags {
		tooManyTags[i] = "t"
	}

	cases := []struct {
		name      string
		in        NoteInput
		wantField string
	}{
		{"missing title", NoteInput{Content: ptr("c")}, "title"},
		{"blank title", NoteInput{Title: ptr("  "), Content: ptr("c")}, "title"},
		{"missing content", NoteInput{Title: ptr("t")}, "content"},
		{"blank content", NoteInput{Title: ptr("t"), Content: ptr("")}, "content"},
		{"title too long", NoteInput{Title: ptr(strings.Repeat("a", MaxTitleLength+1)), Content: ptr("c")}, "title"},
		{"bad reminder", NoteInput{Title: ptr("t"), Content: ptr("c"), Reminder: ptr("tomorrow")}, "reminder"},
		{"too many tags", NoteInput{Title: ptr("t"), Content: ptr("c"), Tags: &tooManyTags}, "tags"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.notes.Create(context.Background(), "u1", tc.in)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want a validation error", err)
			}
			if appErr.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tc.wantField)
			}
		})
	}
}

// =========================================================================
// LIST / ISOLATION TESTS
// =========================================================================

func TestNoteList_OwnerOnlyInCreationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		if _, err := env.notes.Create(ctx, "alice", NoteInput{Title: ptr(title), Content: ptr("c")}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := env.notes.Create(ctx, "bob", NoteInput{Title: ptr("bobs"), Content: ptr("c")}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	notes, err := env.notes.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notes) != 2 || notes[0].Title != "first" || notes[1].Title != "second" {
		t.Errorf("List(alice) = %+v, want [first second]", notes)
	}

	empty, err := env.notes.List(ctx, "carol")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("List(carol) = %#v, %v; want empty non-nil slice", empty, err)
	}
}

func TestNote_CrossTenantAccessIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, "alice", NoteInput{Title: ptr("secret"), Content: ptr("c")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := env.notes.Update(ctx, "bob", note.ID, NoteInput{Title: ptr("pwned")}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() by other user error = %v, want ErrNotFound", err)
	}
	if err := env.notes.Delete(ctx, "bob", note.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() by other user error = %v, want ErrNotFound", err)
	}

	notes, _ := env.notes.List(ctx, "alice")
	if len(notes) != 1 || notes[0].Title != "secret" {
		t.Errorf("alice's note changed: %+v", notes)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestNoteUpdate_PartialAndEmptyMeansNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	note, _ := env.notes.Create(ctx, "alice", NoteInput{
		Title:   ptr("title"),
		Content: ptr("content"),
		Tags:    &[]string{"a"},
	})

	updated, err := env.notes.Update(ctx, "alice", note.ID, NoteInput{
		Title:   ptr("   "),
		Content: ptr(" new content "),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "title" {
		t.Errorf("Title = %q, blank update should be a no-op", updated.Title)
	}
	if updated.Content != "new content" {
		t.Errorf("Content = %q, want %q", updated.Content, "new content")
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "a" {
		t.Errorf("Tags = %v, omitted field should be untouched", updated.Tags)
	}
	if updated.ID != note.ID || !updated.CreatedAt.Equal(note.CreatedAt) {
		t.Error("ID or CreatedAt changed on update")
	}
}

func TestNoteUpdate_TagsAndReminder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	note, _ := env.notes.Create(ctx, "alice", NoteInput{Title: ptr("t"), Content: ptr("c"), Tags: &[]string{"a", "b"}})

	updated, err := env.notes.Update(ctx, "alice", note.ID, NoteInput{
		Tags:     &[]string{},
		Reminder: ptr("2031-06-01T09:00:00Z"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("Tags = %v, want cleared", updated.Tags)
	}
	if updated.Reminder == nil || updated.Reminder.Year() != 2031 {
		t.Errorf("Reminder = %v, want 2031-06-01", updated.Reminder)
	}

	if _, err := env.notes.Update(ctx, "alice", note.ID, NoteInput{Reminder: ptr("soon")}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad reminder error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestNoteDelete_TwiceReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	note, _ := env.notes.Create(ctx, "alice", NoteInput{Title: ptr("t"), Content: ptr("c")})

	if err := env.notes.Delete(ctx, "alice", note.ID); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	if err := env.notes.Delete(ctx, "alice", note.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestNoteCreate_StorageFailureIsNotSwallowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.persist.failing = true

	_, err := env.notes.Create(ctx, "alice", NoteInput{Title: ptr("t"), Content: ptr("c")})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Create() error = %v, want the storage error", err)
	}
	if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrNotFound) {
		t.Error("storage failure must not look like a client error")
	}

	env.persist.failing = false
	if notes, _ := env.notes.List(ctx, "alice"); len(notes) != 0 {
		t.Errorf("List() = %v, failed create must not be visible", notes)
	}
}
