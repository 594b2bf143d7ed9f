package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

const timeLayout = time.RFC3339Nano

// Load reads every collection in storage order.
func (db *DB) Load(ctx context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}
	var err error

	if snap.Users, err = db.loadUsers(ctx); err != nil {
		return nil, err
	}
	if snap.Notes, err = db.loadNotes(ctx); err != nil {
		return nil, err
	}
	if snap.Tags, err = db.loadTags(ctx); err != nil {
		return nil, err
	}
	if snap.Revoked, err = db.loadRevoked(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

// =========================================================================
// USERS
// =========================================================================

func (db *DB) SaveUsers(ctx context.Context, users []model.User) error {
	return db.replaceAll(ctx, "users", func(tx *sql.Tx) error {
		for _, u := range users {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO users (id, username, password_hash, created_at)
				 VALUES (?, ?, ?, ?)`,
				u.ID,
				u.Username,
				u.PasswordHash,
				u.CreatedAt.Format(timeLayout),
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

func (db *DB) loadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var (
			u       model.User
			created string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		if u.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("sqlite: parsing created_at of user %s: %w", u.ID, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// =========================================================================
// NOTES
// =========================================================================

// SaveNotes stores tags as a JSON array and an absent reminder as ''.
func (db *DB) SaveNotes(ctx context.Context, notes []model.Note) error {
	return db.replaceAll(ctx, "notes", func(tx *sql.Tx) error {
		for _, n := range notes {
			tags := n.Tags
			if tags == nil {
				tags = []string{}
			}
			tagsJSON, err := json.Marshal(tags)
			if err != nil {
				return fmt.Errorf("sqlite: encoding tags of note %s: %w", n.ID, err)
			}

			reminder := ""
			if n.Reminder != nil {
				reminder = n.Reminder.Format(timeLayout)
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO notes (id, user_id, title, content, tags, reminder, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				n.ID,
				n.UserID,
				n.Title,
				n.Content,
				string(tagsJSON),
				reminder,
				n.CreatedAt.Format(timeLayout),
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting note %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

func (db *DB) loadNotes(ctx context.Context) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, content, tags, reminder, created_at
		 FROM notes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var (
			n                      model.Note
			tags, reminder, create string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &tags, &reminder, &create); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}

		n.Tags = []string{}
		if tags != "" {
			if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
				return nil, fmt.Errorf("sqlite: decoding tags of note %s: %w", n.ID, err)
			}
		}
		if reminder != "" {
			r, err := time.Parse(timeLayout, reminder)
			if err != nil {
				return nil, fmt.Errorf("sqlite: parsing reminder of note %s: %w", n.ID, err)
			}
			n.Reminder = &r
		}
		if n.CreatedAt, err = time.Parse(timeLayout, create); err != nil {
			return nil, fmt.Errorf("sqlite: parsing created_at of note %s: %w", n.ID, err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}
	return notes, nil
}

// =========================================================================
// TAGS
// =========================================================================

func (db *DB) SaveTags(ctx context.Context, tags []model.Tag) error {
	return db.replaceAll(ctx, "tags", func(tx *sql.Tx) error {
		for _, t := range tags {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO tags (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
				t.ID,
				t.UserID,
				t.Name,
				t.CreatedAt.Format(timeLayout),
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting tag %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (db *DB) loadTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM tags ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var (
			t       model.Tag
			created string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		if t.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("sqlite: parsing created_at of tag %s: %w", t.ID, err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

// =========================================================================
// REVOKED TOKENS
// =========================================================================

func (db *DB) SaveRevoked(ctx context.Context, revoked []model.RevokedToken) error {
	return db.replaceAll(ctx, "revoked_tokens", func(tx *sql.Tx) error {
		for _, e := range revoked {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO revoked_tokens (token, exp, revoked_at) VALUES (?, ?, ?)`,
				e.Token, e.Exp, e.RevokedAt,
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting revoked token: %w", err)
			}
		}
		return nil
	})
}

func (db *DB) loadRevoked(ctx context.Context) ([]model.RevokedToken, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT token, exp, revoked_at FROM revoked_tokens ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing revoked tokens: %w", err)
	}
	defer rows.Close()

	revoked := make([]model.RevokedToken, 0)
	for rows.Next() {
		var e model.RevokedToken
		if err := rows.Scan(&e.Token, &e.Exp, &e.RevokedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning revoked token row: %w", err)
		}
		revoked = append(revoked, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating revoked tokens: %w", err)
	}
	return revoked, nil
}
