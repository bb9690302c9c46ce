package domain

import "time"

// Session is the relational audit record of one login or registration.
// Liveness is decided by the session cache entry, not by ExpiresAt.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
