package storage

import (
	"context"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

//go:generate moq -out user_mock.go . UserStorage

// UserStorage хранит учетные записи authority. Пароли приходят уже в виде bcrypt hash.
type UserStorage interface {
	// CreateUser returns ErrUserAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername returns ErrUserNotFound for an unknown username.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID используется при обмене refresh token
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error
}
