// Package auth manages the client session: registration, login, logout and the bearer
// credential handed to the sync engine.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/validation"
	pkgapi "github.com/iudanet/fieldsync/pkg/api"
)

// Credential errors
var (
	// ErrNoCredentials indicates that nobody is logged in
	ErrNoCredentials = errors.New("not logged in")

	// ErrExpired indicates that the stored token has expired and could not be refreshed
	ErrExpired = errors.New("credentials expired")
)

// Service предоставляет функции авторизации и хранит сессию
type Service struct {
	apiClient api.ClientAPI
	store     storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
	server    string
	mu        sync.Mutex // refresh token одноразовый, обновляем сессию по одному
}

// NewService создает новый сервис авторизации для authority по адресу server
func NewService(apiClient api.ClientAPI, store storage.AuthStorage, server string, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		server:    server,
		logger:    logger,
		now:       time.Now,
	}
}

// Register регистрирует нового пользователя
func (s *Service) Register(ctx context.Context, username, password string) (*pkgapi.RegisterResponse, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "username", username, "user_id", resp.UserID)
	return resp, nil
}

// Login выполняет аутентификацию и сохраняет сессию
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}

	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	session := s.newSession(username, resp.UserID, resp)
	if err := s.store.SaveAuth(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("logged in", "username", username, "expires_at", time.Unix(session.ExpiresAt, 0))
	return session, nil
}

func (s *Service) newSession(username, userID string, resp *pkgapi.TokenResponse) *storage.AuthData {
	expiresAt, err := TokenExpiry(resp.AccessToken)
	if err != nil {
		// токен без exp: полагаемся на expires_in из ответа
		expiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return &storage.AuthData{
		Username:     username,
		UserID:       userID,
		Server:       s.server,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}
}

// Logout удаляет локальную сессию. Данные пользователя на устройстве сохраняются.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNoCredentials
		}
		return err
	}
	return nil
}

// Session returns the stored session, expired or not.
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	session, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}
	return session, nil
}

// Token returns a bearer token that has not expired yet. An expired access token is
// exchanged through the refresh token when the session has one.
func (s *Service) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.Session(ctx)
	if err != nil {
		return "", err
	}
	if s.now().Before(time.Unix(session.ExpiresAt, 0)) {
		return session.AccessToken, nil
	}
	if session.RefreshToken == "" {
		return "", ErrExpired
	}

	resp, err := s.apiClient.Refresh(ctx, session.RefreshToken)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		s.logger.Warn("refresh token rejected, login required", "username", session.Username)
		return "", fmt.Errorf("%w: %w", ErrExpired, err)
	case err != nil:
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	userID := resp.UserID
	if userID == "" {
		userID = session.UserID
	}
	refreshed := s.newSession(session.Username, userID, resp)
	if err := s.store.SaveAuth(ctx, refreshed); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("access token refreshed", "username", session.Username)
	return refreshed.AccessToken, nil
}

// Invalidate marks token as expired when it is still the session's access token, so the
// next Token call exchanges the refresh token instead of returning the rejected token.
func (s *Service) Invalidate(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.Session(ctx)
	if err != nil {
		return err
	}
	if session.AccessToken != token {
		// уже обновлен другим вызовом
		return nil
	}

	session.ExpiresAt = s.now().Unix()
	if err := s.store.SaveAuth(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.logger.Info("access token rejected by authority", "username", session.Username)
	return nil
}

// Scope returns the user scope of a session: documents of different users or
// authorities never share a store.
func Scope(session *storage.AuthData) string {
	return session.Server + "|" + session.UserID
}
