package repository

import (
	"context"
	"fmt"

	"github.com/sakif/notekeeper/internal/model"
)

// MigrationResult says what MigrateOwnership changed.
type MigrationResult struct {
	OwnerID      string // user the ownerless records were assigned to
	UsersChanged bool   // a bootstrap user was created
	NotesMoved   int
	TagsMoved    int
}

// Changed reports whether anything needs to be written back.
func (r MigrationResult) Changed() bool {
	return r.UsersChanged || r.NotesMoved > 0 || r.TagsMoved > 0
}

// MigrateOwnership upgrades data written before notes and tags had owners.
//
// If any note or tag has an empty UserID, all of them are assigned to one
// user: the first stored user, or a new one produced by bootstrap when there
// are no users at all. The snapshot is modified in place.
func MigrateOwnership(snap *Snapshot, bootstrap func() (model.User, error)) (MigrationResult, error) {
	var res MigrationResult

	ownerless := 0
	for _, n := range snap.Notes {
		if n.UserID == "" {
			ownerless++
		}
	}
	for _, t := range snap.Tags {
		if t.UserID == "" {
			ownerless++
		}
	}
	if ownerless == 0 {
		return res, nil
	}

	if len(snap.Users) == 0 {
		u, err := bootstrap()
		if err != nil {
			return res, fmt.Errorf("repository: creating bootstrap user: %w", err)
		}
		snap.Users = append(snap.Users, u)
		res.UsersChanged = true
	}
	res.OwnerID = snap.Users[0].ID

	for i := range snap.Notes {
		if snap.Notes[i].UserID == "" {
			snap.Notes[i].UserID = res.OwnerID
			res.NotesMoved++
		}
	}
	for i := range snap.Tags {
		if snap.Tags[i].UserID == "" {
			snap.Tags[i].UserID = res.OwnerID
			res.TagsMoved++
		}
	}

	return res, nil
}

// SaveMigration writes back the collections a migration touched.
func SaveMigration(ctx context.Context, p Persister, snap *Snapshot, res MigrationResult) error {
	if res.UsersChanged {
		if err := p.SaveUsers(ctx, snap.Users); err != nil {
			return fmt.Errorf("repository: saving migrated users: %w", err)
		}
	}
	if res.NotesMoved > 0 {
		if err := p.SaveNotes(ctx, snap.Notes); err != nil {
			return fmt.Errorf("repository: saving migrated notes: %w", err)
		}
	}
	if res.TagsMoved > 0 {
		if err := p.SaveTags(ctx, snap.Tags); err != nil {
			return fmt.Errorf("repository: saving migrated tags: %w", err)
		}
	}
	return nil
}
