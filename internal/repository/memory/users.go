package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
)

// CreateUser assigns ID and CreatedAt, enforces case-insensitive username
// uniqueness and persists the users collection.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	db.usersMu.Lock()
	defer db.usersMu.Unlock()

	if db.usernameIndex(user.Username, "") >= 0 {
		return apperror.Conflict("user", "username")
	}

	user.ID = xid.New().String()
	user.CreatedAt = db.now().UTC()

	next := append(cloneSlice(db.users), *user)
	if err := db.persist.SaveUsers(ctx, next); err != nil {
		return fmt.Errorf("memory: creating user: %w", err)
	}
	db.users = next
	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that ID.
func (db *DB) GetUserByID(_ context.Context, id string) (*model.User, error) {
	db.usersMu.RLock()
	defer db.usersMu.RUnlock()

	if i := db.userIndex(id); i >= 0 {
		u := db.users[i]
		return &u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (db *DB) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	db.usersMu.RLock()
	defer db.usersMu.RUnlock()

	for _, u := range db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (db *DB) UsernameTaken(_ context.Context, username, exceptID string) (bool, error) {
	db.usersMu.RLock()
	defer db.usersMu.RUnlock()

	return db.usernameIndex(username, exceptID) >= 0, nil
}

func (db *DB) UpdateUser(ctx context.Context, id string, apply func(*model.User) error) (*model.User, error) {
	db.usersMu.Lock()
	defer db.usersMu.Unlock()

	i := db.userIndex(id)
	if i < 0 {
		return nil, apperror.NotFound("user", id)
	}

	updated := db.users[i]
	if err := apply(&updated); err != nil {
		return nil, err
	}
	// ID is immutable regardless of what apply did.
	updated.ID = id

	if db.usernameIndex(updated.Username, id) >= 0 {
		return nil, apperror.Conflict("user", "username")
	}

	next := withReplaced(db.users, i, updated)
	if err := db.persist.SaveUsers(ctx, next); err != nil {
		return nil, fmt.Errorf("memory: updating user %s: %w", id, err)
	}
	db.users = next
	return &updated, nil
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	db.usersMu.Lock()
	defer db.usersMu.Unlock()

	i := db.userIndex(id)
	if i < 0 {
		return apperror.NotFound("user", id)
	}

	next := withRemoved(db.users, i)
	if err := db.persist.SaveUsers(ctx, next); err != nil {
		return fmt.Errorf("memory: deleting user %s: %w", id, err)
	}
	db.users = next
	return nil
}

// userIndex must be called with usersMu held.
func (db *DB) userIndex(id string) int {
	for i, u := range db.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// usernameIndex must be called with usersMu held.
func (db *DB) usernameIndex(username, exceptID string) int {
	for i, u := range db.users {
		if u.ID != exceptID && strings.EqualFold(u.Username, username) {
			return i
		}
	}
	return -1
}
