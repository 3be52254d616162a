// Package domain contains core concepts of the relay.
// This file defines User and Session identities.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// UserID is the logical identity a client registers with.
// It doubles as the addressing key of the connection registry.
type UserID string

// SessionID identifies one live transport connection.
type SessionID string

// User is a registered account. The credential hash never leaves the server.
type User struct {
	ID           UserID    `json:"UserId"`
	Email        string    `json:"UserEmail"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
