// Package repository defines the storage contracts used by the service layer.
//
// Two kinds of interfaces live here:
//
//   - The record repositories (UserRepository, NoteRepository, TagRepository,
//     RevocationRepository) are what services talk to. The memory package
//     implements all of them on top of one authoritative in-memory copy.
//   - Persister is the durable backend behind that copy. It only knows how to
//     load every collection and how to rewrite one whole collection. The
//     jsonfile and sqlite packages implement it.
package repository

import (
	"context"

	"github.com/sakif/notekeeper/internal/model"
)

// UserRepository stores user accounts.
//
// Username uniqueness is case-insensitive and enforced by the repository,
// so the check and the write happen under the same lock.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByUsername matches the username exactly.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UsernameTaken reports whether another user (not exceptID) holds the
	// username, compared case-insensitively.
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	// UpdateUser loads the user, passes it to apply, re-checks uniqueness and
	// persists the result. Nothing is saved if apply returns an error.
	UpdateUser(ctx context.Context, id string, apply func(*model.User) error) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// NoteRepository stores notes. Every method is scoped to an owner; a note
// owned by someone else behaves exactly like a missing one.
type NoteRepository interface {
	ListNotes(ctx context.Context, userID string) ([]model.Note, error)
	CreateNote(ctx context.Context, note *model.Note) error
	UpdateNote(ctx context.Context, userID, id string, apply func(*model.Note) error) (*model.Note, error)
	DeleteNote(ctx context.Context, userID, id string) error
	DeleteNotesByOwner(ctx context.Context, userID string) (int, error)
}

// TagRepository stores tags. Names are unique per owner.
type TagRepository interface {
	ListTags(ctx context.Context, userID string) ([]model.Tag, error)
	CreateTag(ctx context.Context, tag *model.Tag) error
	UpdateTag(ctx context.Context, userID, id string, apply func(*model.Tag) error) (*model.Tag, error)
	DeleteTag(ctx context.Context, userID, id string) error
	DeleteTagsByOwner(ctx context.Context, userID string) (int, error)
}

// RevocationRepository is the token blacklist.
type RevocationRepository interface {
	// Revoke adds the entry. Revoking a token twice is not an error.
	Revoke(ctx context.Context, entry model.RevokedToken) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// PruneRevoked drops entries with Exp <= now and returns how many went.
	PruneRevoked(ctx context.Context, now int64) (int, error)
	CountRevoked(ctx context.Context) (int, error)
}

// Snapshot is the complete persisted state.
type Snapshot struct {
	Users   []model.User
	Notes   []model.Note
	Tags    []model.Tag
	Revoked []model.RevokedToken
}

// Persister is a durable backend. Each Save call replaces the whole
// collection; a reader never observes a half-written one.
type Persister interface {
	Load(ctx context.Context) (*Snapshot, error)
	SaveUsers(ctx context.Context, users []model.User) error
	SaveNotes(ctx context.Context, notes []model.Note) error
	SaveTags(ctx context.Context, tags []model.Tag) error
	SaveRevoked(ctx context.Context, revoked []model.RevokedToken) error
	Close() error
}
