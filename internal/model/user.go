// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The struct tags describe the persisted shape, which includes PasswordHash.
// API responses must go through Public(), never encode a User directly.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
