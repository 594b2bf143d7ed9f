package model

import "time"

// Note is a user-owned text record.
//
// Tags are free-form labels, not references to Tag records.
// UserID is fixed at creation; an empty UserID only appears in data written
// before per-user ownership existed (see repository.MigrateOwnership).
type Note struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags"`
	Reminder  *time.Time `json:"reminder,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Clone returns a deep copy, so callers can't alias the stored tag slice.
func (n Note) Clone() Note {
	c := n
	c.Tags = append([]string(nil), n.Tags...)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if n.Reminder != nil {
		r := *n.Reminder
		c.Reminder = &r
	}
	return c
}
