// Package memory holds the authoritative in-memory copy of every collection
// and writes each change through to a repository.Persister.
//
// WRITE-THROUGH:
// Each collection has its own lock. A mutation takes the lock, builds a new
// slice with the change applied, hands the whole slice to the persister, and
// only swaps it in after the save succeeded. So:
//   - concurrent mutations of one collection are serialized (no lost updates)
//   - a failed save leaves memory exactly as it was and the error reaches
//     the caller, who answers 500 instead of pretending the write happened
//
// Reads take the read lock and return copies.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

var (
	_ repository.UserRepository       = (*DB)(nil)
	_ repository.NoteRepository       = (*DB)(nil)
	_ repository.TagRepository        = (*DB)(nil)
	_ repository.RevocationRepository = (*DB)(nil)
)

// DB implements every record repository.
type DB struct {
	persist repository.Persister
	now     func() time.Time

	usersMu sync.RWMutex
	users   []model.User

	notesMu sync.RWMutex
	notes   []model.Note

	tagsMu sync.RWMutex
	tags   []model.Tag

	revokedMu sync.RWMutex
	revoked   []model.RevokedToken
}

// New builds a DB from a loaded (and already migrated) snapshot.
// A nil snapshot starts empty.
func New(p repository.Persister, snap *repository.Snapshot) *DB {
	db := &DB{persist: p, now: time.Now}
	if snap != nil {
		db.users = snap.Users
		db.notes = snap.Notes
		db.tags = snap.Tags
		db.revoked = snap.Revoked
	}
	return db
}

// Open loads the snapshot from p, runs the ownership migration and returns
// a ready DB. bootstrap is only called when a bootstrap user is needed.
func Open(ctx context.Context, p repository.Persister, bootstrap func() (model.User, error)) (*DB, repository.MigrationResult, error) {
	snap, err := p.Load(ctx)
	if err != nil {
		return nil, repository.MigrationResult{}, err
	}

	res, err := repository.MigrateOwnership(snap, bootstrap)
	if err != nil {
		return nil, res, err
	}
	if res.Changed() {
		if err := repository.SaveMigration(ctx, p, snap, res); err != nil {
			return nil, res, err
		}
	}

	return New(p, snap), res, nil
}

// Snapshot returns a deep copy of the current state.
func (db *DB) Snapshot() *repository.Snapshot {
	snap := &repository.Snapshot{}

	db.usersMu.RLock()
	snap.Users = cloneSlice(db.users)
	db.usersMu.RUnlock()

	db.notesMu.RLock()
	snap.Notes = make([]model.Note, 0, len(db.notes))
	for _, n := range db.notes {
		snap.Notes = append(snap.Notes, n.Clone())
	}
	db.notesMu.RUnlock()

	db.tagsMu.RLock()
	snap.Tags = cloneSlice(db.tags)
	db.tagsMu.RUnlock()

	db.revokedMu.RLock()
	snap.Revoked = cloneSlice(db.revoked)
	db.revokedMu.RUnlock()

	return snap
}

// cloneSlice copies a slice of plain values. Always non-nil so JSON writes
// "[]" rather than "null".
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// withReplaced returns a copy of s with index i replaced by v.
func withReplaced[T any](s []T, i int, v T) []T {
	out := cloneSlice(s)
	out[i] = v
	return out
}

// withRemoved returns a copy of s without index i.
func withRemoved[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
