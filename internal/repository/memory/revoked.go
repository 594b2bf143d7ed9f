package memory

import (
	"context"
	"fmt"

	"github.com/sakif/notekeeper/internal/model"
)

func (db *DB) Revoke(ctx context.Context, entry model.RevokedToken) error {
	db.revokedMu.Lock()
	defer db.revokedMu.Unlock()

	if db.revokedIndex(entry.Token) >= 0 {
		return nil
	}

	next := append(cloneSlice(db.revoked), entry)
	if err := db.persist.SaveRevoked(ctx, next); err != nil {
		return fmt.Errorf("memory: revoking token: %w", err)
	}
	db.revoked = next
	return nil
}

func (db *DB) IsRevoked(_ context.Context, token string) (bool, error) {
	db.revokedMu.RLock()
	defer db.revokedMu.RUnlock()

	return db.revokedIndex(token) >= 0, nil
}

// PruneRevoked only writes when at least one entry was dropped.
func (db *DB) PruneRevoked(ctx context.Context, now int64) (int, error) {
	db.revokedMu.Lock()
	defer db.revokedMu.Unlock()

	next := make([]model.RevokedToken, 0, len(db.revoked))
	for _, e := range db.revoked {
		if e.Exp > now {
			next = append(next, e)
		}
	}
	removed := len(db.revoked) - len(next)
	if removed == 0 {
		return 0, nil
	}

	if err := db.persist.SaveRevoked(ctx, next); err != nil {
		return 0, fmt.Errorf("memory: pruning revoked tokens: %w", err)
	}
	db.revoked = next
	return removed, nil
}

func (db *DB) CountRevoked(_ context.Context) (int, error) {
	db.revokedMu.RLock()
	defer db.revokedMu.RUnlock()

	return len(db.revoked), nil
}

// revokedIndex must be called with revokedMu held.
func (db *DB) revokedIndex(token string) int {
	for i, e := range db.revoked {
		if e.Token == token {
			return i
		}
	}
	return -1
}
