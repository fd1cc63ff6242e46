package storage

import (
	"context"
)

//go:generate moq -out authstorage_mock.go . AuthStorage

// AuthStorage defines interface for storing the client session.
// The session lives in its own file next to the per-user document stores,
// so the CLI can learn who is logged in before opening any user scope.
type AuthStorage interface {
	// SaveAuth stores the session, replacing any previous one
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves the stored session
	// Returns ErrAuthNotFound if no session exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes the stored session (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if a session exists and its token has not expired
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData represents the session stored on the device.
type AuthData struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	Server       string `json:"server"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}
