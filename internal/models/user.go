package models

import "time"

// User представляет пользователя authority
type User struct {
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ID           string     `json:"id"`            // UUID пользователя
	Username     string     `json:"username"`      // уникальный username
	PasswordHash string     `json:"password_hash"` // bcrypt хеш пароля
}

// RefreshToken представляет refresh token пользователя.
// В базе хранится только SHA256 хеш токена.
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	TokenHash string    `json:"token_hash"`
	UserID    string    `json:"user_id"`
}

// StoredDocument is a document as the authority keeps it for one user.
type StoredDocument struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    Fields
	Type      EntityType
	ID        string
	UserID    string
}
