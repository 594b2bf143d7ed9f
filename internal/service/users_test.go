package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/notekeeper/internal/apperror"
)

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	u := env.register(t, "  alice  ", "  s3cret  ")

	if u.ID == "" {
		t.Error("expected user to have an ID")
	}
	if u.Username != "alice" {
		t.Errorf("Username = %q, want trimmed %q", u.Username, "alice")
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", u.PasswordHash)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	// Stored password is the trimmed one.
	got, err := env.users.VerifyCredentials(context.Background(), "alice", "s3cret")
	if err != nil || got == nil {
		t.Fatalf("VerifyCredentials() = %v, %v; want the user", got, err)
	}
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct {
		name      string
		username  *string
		password  *string
		wantField string
	}{
		{"missing username", nil, ptr("pw"), "username"},
		{"missing password", ptr("bob"), nil, "password"},
		{"blank username", ptr("   "), ptr("pw"), "username"},
		{"blank password", ptr("bob"), ptr("\t\n"), "password"},
		{"password over 72 bytes", ptr("bob"), ptr(strings.Repeat("x", 73)), "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.users.Register(context.Background(), tc.username, tc.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tc.wantField)
			}
		})
	}
}

func TestRegister_DuplicateIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "pw")

	_, err := env.users.Register(context.Background(), ptr("alice"), ptr("other"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestRegister_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.persist.failing = true

	_, err := env.users.Register(context.Background(), ptr("alice"), ptr("pw"))
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("error = %v, want the storage error", err)
	}

	if n := len(env.db.Snapshot().Users); n != 0 {
		t.Errorf("memory holds %d users after a failed save, want 0", n)
	}
}

// =========================================================================
// Update TESTS
// =========================================================================

func TestUpdate_ChangesUsernameAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "alice", "old")

	updated, err := env.users.Update(ctx, u.ID, ptr(" alicia "), ptr("new"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Username != "alicia" {
		t.Errorf("Username = %q, want %q", updated.Username, "alicia")
	}

	if got, _ := env.users.VerifyCredentials(ctx, "alicia", "old"); got != nil {
		t.Error("old password still accepted")
	}
	if got, _ := env.users.VerifyCredentials(ctx, "alicia", "new"); got == nil {
		t.Error("new password rejected")
	}
}

func TestUpdate_KeepsOwnUsernameInDifferentCase(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice", "pw")

	updated, err := env.users.Update(context.Background(), u.ID, ptr("ALICE"), nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Username != "ALICE" {
		t.Errorf("Username = %q, want %q", updated.Username, "ALICE")
	}
}

func TestUpdate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "pw")
	env.register(t, "bob", "pw")

	if _, err := env.users.Update(ctx, "missing", ptr("x"), nil); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown id: error = %v, want ErrNotFound", err)
	}
	if _, err := env.users.Update(ctx, alice.ID, ptr("  "), nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank username: error = %v, want ErrValidation", err)
	}
	if _, err := env.users.Update(ctx, alice.ID, nil, ptr("")); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank password: error = %v, want ErrValidation", err)
	}
	if _, err := env.users.Update(ctx, alice.ID, ptr("BOB"), nil); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("taken username: error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// Delete TESTS
// =========================================================================

func TestDelete_CascadesToNotesAndTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "pw")
	bob := env.register(t, "bob", "pw")

	for _, owner := range []string{alice.ID, bob.ID} {
		if _, err := env.notes.Create(ctx, owner, NoteInput{Title: ptr("t"), Content: ptr("c")}); err != nil {
			t.Fatalf("Create note: %v", err)
		}
		if _, err := env.tags.Create(ctx, owner, ptr("work")); err != nil {
			t.Fatalf("Create tag: %v", err)
		}
	}

	if err := env.users.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if notes, _ := env.notes.List(ctx, alice.ID); len(notes) != 0 {
		t.Errorf("alice still has %d notes", len(notes))
	}
	if tags, _ := env.tags.List(ctx, alice.ID); len(tags) != 0 {
		t.Errorf("alice still has %d tags", len(tags))
	}
	if notes, _ := env.notes.List(ctx, bob.ID); len(notes) != 1 {
		t.Errorf("bob has %d notes, want 1", len(notes))
	}

	// Cascade reached the files too.
	snap, err := env.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(snap.Users) != 1 || len(snap.Notes) != 1 || len(snap.Tags) != 1 {
		t.Errorf("persisted users=%d notes=%d tags=%d, want 1 each",
			len(snap.Users), len(snap.Notes), len(snap.Tags))
	}
}

func TestDelete_TwiceReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "alice", "pw")

	if err := env.users.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	if err := env.users.Delete(context.Background(), u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// VerifyCredentials TESTS
// =========================================================================

func TestVerifyCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")

	cases := []struct {
		name     string
		username string
		password string
		wantUser bool
	}{
		{"correct", "alice", "pw", true},
		{"wrong password", "alice", "nope", false},
		{"unknown user", "mallory", "pw", false},
		{"username is exact", "Alice", "pw", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.users.VerifyCredentials(ctx, tc.username, tc.password)
			if err != nil {
				t.Fatalf("VerifyCredentials() error = %v, want nil", err)
			}
			if (got != nil) != tc.wantUser {
				t.Errorf("VerifyCredentials() user = %v, wantUser %v", got, tc.wantUser)
			}
		})
	}
}
