package contentauth

import (
	"context"
	"time"
)

// User is the subset of a stored account the engine reads. Fields beyond
// these belong to the user store and are not touched here.
type User struct {
	ID           string
	Username     string
	Nickname     string
	PasswordHash string
	Email        string
	Avatar       string
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore is the persistence boundary for accounts.
//
// GetByUsername returns ErrUserNotFound (possibly wrapped) when no account
// matches. Any other error is treated as a backend failure.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// Profile is the public part of a user returned on login.
type Profile struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	AccessToken string
	TokenID     string
	UserID      string
	ExpiresAt   time.Time
	Profile     Profile
}

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
