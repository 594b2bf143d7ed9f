// Package jsonfile implements repository.Persister with one JSON file per
// collection:
//
//	<dir>/users.json
//	<dir>/notes.json
//	<dir>/tags.json
//	<dir>/blacklist.json
//
// Every save marshals the whole collection and replaces the file through
// atomicwriter (write temp file, fsync, rename), so a crash leaves either the
// old or the new file on disk, never a truncated one.
//
// Loading rules:
//   - missing file            → empty collection
//   - empty/whitespace file   → empty collection
//   - anything unparseable    → error (the server refuses to start)
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/moby/sys/atomicwriter"

	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

const (
	UsersFile     = "users.json"
	NotesFile     = "notes.json"
	TagsFile      = "tags.json"
	BlacklistFile = "blacklist.json"
)

var _ repository.Persister = (*Store)(nil)

// Store writes collections under a single directory.
type Store struct {
	dir string

	// One writer per file at a time. The memory layer already serializes
	// per collection; this keeps Store safe on its own.
	mu sync.Mutex
}

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: creating data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) Load(_ context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}

	if err := s.read(UsersFile, &snap.Users); err != nil {
		return nil, err
	}
	if err := s.read(NotesFile, &snap.Notes); err != nil {
		return nil, err
	}
	if err := s.read(TagsFile, &snap.Tags); err != nil {
		return nil, err
	}
	if err := s.read(BlacklistFile, &snap.Revoked); err != nil {
		return nil, err
	}

	normalizeNotes(snap.Notes)
	return snap, nil
}

func (s *Store) SaveUsers(_ context.Context, users []model.User) error {
	return s.write(UsersFile, users)
}

func (s *Store) SaveNotes(_ context.Context, notes []model.Note) error {
	return s.write(NotesFile, notes)
}

func (s *Store) SaveTags(_ context.Context, tags []model.Tag) error {
	return s.write(TagsFile, tags)
}

func (s *Store) SaveRevoked(_ context.Context, revoked []model.RevokedToken) error {
	return s.write(BlacklistFile, revoked)
}

// Close is a no-op; files are not held open between calls.
func (s *Store) Close() error { return nil }

// read decodes name into dst. dst must point to a slice; it is left empty
// (non-nil) for missing or blank files.
func (s *Store) read(name string, dst any) error {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return json.Unmarshal([]byte("[]"), dst)
		}
		return fmt.Errorf("jsonfile: reading %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return json.Unmarshal([]byte("[]"), dst)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("jsonfile: parsing %s: %w", path, err)
	}
	return nil
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encoding %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := atomicwriter.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("jsonfile: writing %s: %w", path, err)
	}
	return nil
}

// normalizeNotes replaces nil tag lists, which older files may contain.
func normalizeNotes(notes []model.Note) {
	for i := range notes {
		if notes[i].Tags == nil {
			notes[i].Tags = []string{}
		}
	}
}
