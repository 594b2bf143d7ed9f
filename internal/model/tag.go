package model

import "time"

// Tag is a named label owned by one user. Names are unique per owner.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// RevokedToken is a blacklist entry written on logout.
// Exp and RevokedAt are unix seconds.
type RevokedToken struct {
	Token     string `json:"token"`
	Exp       int64  `json:"exp"`
	RevokedAt int64  `json:"revokedAt"`
}
