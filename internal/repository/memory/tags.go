package memory

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
)

func (db *DB) ListTags(_ context.Context, userID string) ([]model.Tag, error) {
	db.tagsMu.RLock()
	defer db.tagsMu.RUnlock()

	out := make([]model.Tag, 0)
	for _, t := range db.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreateTag fails with apperror.ErrConflict if the owner already has a tag
// with the same name.
func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	db.tagsMu.Lock()
	defer db.tagsMu.Unlock()

	if db.tagNameIndex(tag.UserID, tag.Name, "") >= 0 {
		return apperror.Conflict("tag", "name")
	}

	tag.ID = xid.New().String()
	tag.CreatedAt = db.now().UTC()

	next := append(cloneSlice(db.tags), *tag)
	if err := db.persist.SaveTags(ctx, next); err != nil {
		return fmt.Errorf("memory: creating tag: %w", err)
	}
	db.tags = next
	return nil
}

func (db *DB) UpdateTag(ctx context.Context, userID, id string, apply func(*model.Tag) error) (*model.Tag, error) {
	db.tagsMu.Lock()
	defer db.tagsMu.Unlock()

	i := db.tagIndex(userID, id)
	if i < 0 {
		return nil, apperror.NotFound("tag", id)
	}

	updated := db.tags[i]
	if err := apply(&updated); err != nil {
		return nil, err
	}
	updated.ID = id
	updated.UserID = userID
	updated.CreatedAt = db.tags[i].CreatedAt

	if db.tagNameIndex(userID, updated.Name, id) >= 0 {
		return nil, apperror.Conflict("tag", "name")
	}

	next := withReplaced(db.tags, i, updated)
	if err := db.persist.SaveTags(ctx, next); err != nil {
		return nil, fmt.Errorf("memory: updating tag %s: %w", id, err)
	}
	db.tags = next
	return &updated, nil
}

func (db *DB) DeleteTag(ctx context.Context, userID, id string) error {
	db.tagsMu.Lock()
	defer db.tagsMu.Unlock()

	i := db.tagIndex(userID, id)
	if i < 0 {
		return apperror.NotFound("tag", id)
	}

	next := withRemoved(db.tags, i)
	if err := db.persist.SaveTags(ctx, next); err != nil {
		return fmt.Errorf("memory: deleting tag %s: %w", id, err)
	}
	db.tags = next
	return nil
}

func (db *DB) DeleteTagsByOwner(ctx context.Context, userID string) (int, error) {
	db.tagsMu.Lock()
	defer db.tagsMu.Unlock()

	next := make([]model.Tag, 0, len(db.tags))
	for _, t := range db.tags {
		if t.UserID != userID {
			next = append(next, t)
		}
	}
	removed := len(db.tags) - len(next)
	if removed == 0 {
		return 0, nil
	}

	if err := db.persist.SaveTags(ctx, next); err != nil {
		return 0, fmt.Errorf("memory: deleting tags of user %s: %w", userID, err)
	}
	db.tags = next
	return removed, nil
}

// tagIndex must be called with tagsMu held.
func (db *DB) tagIndex(userID, id string) int {
	for i, t := range db.tags {
		if t.ID == id && t.UserID == userID {
			return i
		}
	}
	return -1
}

// tagNameIndex must be called with tagsMu held.
func (db *DB) tagNameIndex(userID, name, exceptID string) int {
	for i, t := range db.tags {
		if t.UserID == userID && t.ID != exceptID && t.Name == name {
			return i
		}
	}
	return -1
}
