package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
	"github.com/sakif/notekeeper/internal/repository/jsonfile"
	"github.com/sakif/notekeeper/internal/repository/memory"
)

// =========================================================================
// FIXTURES
// =========================================================================

// testEnv wires every service over a memory.DB backed by JSON files in a
// temporary directory, the same stack the server runs.
type testEnv struct {
	store    *jsonfile.Store
	persist  *flakyPersister
	db       *memory.DB
	tokens   *auth.TokenService
	users    *UserService
	sessions *SessionService
	notes    *NoteService
	tags     *TagService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := jsonfile.New(t.TempDir())
	if err != nil {
		t.Fatalf("jsonfile.New: %v", err)
	}
	persist := &flakyPersister{Persister: store}
	db := memory.New(persist, nil)

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// bcrypt.MinCost keeps the suite fast.
	ps := auth.NewPasswordServiceForTest(4)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	users := NewUserService(db, db, db, ps, logger)
	return &testEnv{
		store:    store,
		persist:  persist,
		db:       db,
		tokens:   ts,
		users:    users,
		sessions: NewSessionService(users, db, ts, logger),
		notes:    NewNoteService(db, logger),
		tags:     NewTagService(db, logger),
	}
}

// register creates a user or fails the test.
func (e *testEnv) register(t *testing.T, username, password string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), &username, &password)
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	return u
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	token, err := e.sessions.Login(context.Background(), &username, &password)
	if err != nil {
		t.Fatalf("Login(%q) error = %v", username, err)
	}
	return token
}

func ptr[T any](v T) *T { return &v }

var errDiskFull = errors.New("disk full")

// flakyPersister forwards to a real store unless failing is set.
type flakyPersister struct {
	repository.Persister
	failing bool
}

func (p *flakyPersister) SaveUsers(ctx context.Context, v []model.User) error {
	if p.failing {
		return errDiskFull
	}
	return p.Persister.SaveUsers(ctx, v)
}

func (p *flakyPersister) SaveNotes(ctx context.Context, v []model.Note) error {
	if p.failing {
		return errDiskFull
	}
	return p.Persister.SaveNotes(ctx, v)
}

func (p *flakyPersister) SaveTags(ctx context.Context, v []model.Tag) error {
	if p.failing {
		return errDiskFull
	}
	return p.Persister.SaveTags(ctx, v)
}

func (p *flakyPersister) SaveRevoked(ctx context.Context, v []model.RevokedToken) error {
	if p.failing {
		return errDiskFull
	}
	return p.Persister.SaveRevoked(ctx, v)
}
