package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/storage"
	pkgapi "github.com/iudanet/fieldsync/pkg/api"
)

func createTestToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// memoryAuth хранит сессию в памяти поверх AuthStorageMock
func memoryAuth() *storage.AuthStorageMock {
	var saved *storage.AuthData
	return &storage.AuthStorageMock{
		SaveAuthFunc: func(ctx context.Context, auth *storage.AuthData) error {
			cp := *auth
			saved = &cp
			return nil
		},
		GetAuthFunc: func(ctx context.Context) (*storage.AuthData, error) {
			if saved == nil {
				return nil, storage.ErrAuthNotFound
			}
			cp := *saved
			return &cp, nil
		},
		DeleteAuthFunc: func(ctx context.Context) error {
			if saved == nil {
				return storage.ErrAuthNotFound
			}
			saved = nil
			return nil
		},
	}
}

func TestService_LoginStoresSession(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := createTestToken(t, exp)

	client := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			assert.Equal(t, "alice", req.Username)
			return &pkgapi.TokenResponse{AccessToken: token, UserID: "user-1", ExpiresIn: 60}, nil
		},
	}
	store := memoryAuth()
	svc := NewService(client, store, "http://authority", slog.New(slog.DiscardHandler))

	session, err := svc.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "http://authority", session.Server)
	// срок берется из exp, а не из expires_in
	assert.Equal(t, exp.Unix(), session.ExpiresAt)
	assert.Len(t, store.SaveAuthCalls(), 1)

	got, err := svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, "http://authority|user-1", Scope(session))
}

func TestService_LoginFallsBackToExpiresIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			return &pkgapi.TokenResponse{AccessToken: "opaque", UserID: "u", ExpiresIn: 120}, nil
		},
	}
	svc := NewService(client, memoryAuth(), "srv", slog.New(slog.DiscardHandler))
	svc.now = func() time.Time { return now }

	session, err := svc.Login(context.Background(), "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Minute).Unix(), session.ExpiresAt)
}

func TestService_LoginErrors(t *testing.T) {
	loginErr := errors.New("boom")
	client := &api.ClientAPIMock{
		LoginFunc: func(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error) {
			return nil, loginErr
		},
	}
	store := memoryAuth()
	svc := NewService(client, store, "srv", slog.New(slog.DiscardHandler))

	_, err := svc.Login(context.Background(), "a", "correct horse battery")
	require.Error(t, err)
	assert.Empty(t, client.LoginCalls(), "invalid username must not reach the authority")

	_, err = svc.Login(context.Background(), "alice", "correct horse battery")
	assert.ErrorIs(t, err, loginErr)
	assert.Empty(t, store.SaveAuthCalls())
}

func TestService_TokenStates(t *testing.T) {
	ctx := context.Background()
	store := memoryAuth()
	svc := NewService(&api.ClientAPIMock{}, store, "srv", slog.New(slog.DiscardHandler))

	_, err := svc.Token(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, store.SaveAuth(ctx, &storage.AuthData{
		UserID:      "u",
		AccessToken: "t",
		ExpiresAt:   time.Now().Add(-time.Minute).Unix(),
	}))
	_, err = svc.Token(ctx)
	assert.ErrorIs(t, err, ErrExpired)

	// Истекшая сессия все еще видна, чтобы знать пользователя
	session, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u", session.UserID)

	require.NoError(t, svc.Logout(ctx))
	assert.ErrorIs(t, svc.Logout(ctx), ErrNoCredentials)
}

func TestService_TokenRefresh(t *testing.T) {
	ctx := context.Background()
	store := memoryAuth()
	fresh := createTestToken(t, time.Now().Add(time.Hour))
	client := &api.ClientAPIMock{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			if refreshToken != "refresh-1" {
				return nil, api.ErrUnauthorized
			}
			return &pkgapi.TokenResponse{AccessToken: fresh, RefreshToken: "refresh-2", ExpiresIn: 3600}, nil
		},
	}
	svc := NewService(client, store, "srv", slog.New(slog.DiscardHandler))

	require.NoError(t, store.SaveAuth(ctx, &storage.AuthData{
		Username:     "alice",
		UserID:       "u",
		Server:       "srv",
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	}))

	token, err := svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)

	session, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u", session.UserID)
	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, "refresh-2", session.RefreshToken)

	// действующий токен не обновляется повторно
	_, err = svc.Token(ctx)
	require.NoError(t, err)
	assert.Len(t, client.RefreshCalls(), 1)
}

func TestService_InvalidateForcesRefresh(t *testing.T) {
	ctx := context.Background()
	store := memoryAuth()
	fresh := createTestToken(t, time.Now().Add(time.Hour))
	client := &api.ClientAPIMock{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			return &pkgapi.TokenResponse{AccessToken: fresh, RefreshToken: "refresh-2", ExpiresIn: 3600}, nil
		},
	}
	svc := NewService(client, store, "srv", slog.New(slog.DiscardHandler))

	require.NoError(t, store.SaveAuth(ctx, &storage.AuthData{
		UserID:       "u",
		AccessToken:  "revoked-on-server",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}))

	token, err := svc.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "revoked-on-server", token)

	// другой токен не трогает сессию
	require.NoError(t, svc.Invalidate(ctx, "something-else"))
	token, err = svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "revoked-on-server", token)
	assert.Empty(t, client.RefreshCalls())

	require.NoError(t, svc.Invalidate(ctx, "revoked-on-server"))
	token, err = svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
	assert.Len(t, client.RefreshCalls(), 1)
}

func TestService_InvalidateWithoutSession(t *testing.T) {
	svc := NewService(&api.ClientAPIMock{}, memoryAuth(), "srv", slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, svc.Invalidate(context.Background(), "t"), ErrNoCredentials)
}

func TestService_TokenRefreshRejected(t *testing.T) {
	ctx := context.Background()
	store := memoryAuth()
	client := &api.ClientAPIMock{
		RefreshFunc: func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
			return nil, api.ErrUnauthorized
		},
	}
	svc := NewService(client, store, "srv", slog.New(slog.DiscardHandler))

	require.NoError(t, store.SaveAuth(ctx, &storage.AuthData{
		UserID:       "u",
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	}))

	_, err := svc.Token(ctx)
	assert.ErrorIs(t, err, ErrExpired)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	client.RefreshFunc = func(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
		return nil, errors.New("connection refused")
	}
	_, err = svc.Token(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestService_Register(t *testing.T) {
	client := &api.ClientAPIMock{
		RegisterFunc: func(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error) {
			return &pkgapi.RegisterResponse{UserID: "new-id", Message: "registered " + req.Username}, nil
		},
	}
	svc := NewService(client, memoryAuth(), "srv", slog.New(slog.DiscardHandler))

	_, err := svc.Register(context.Background(), "bob", "short")
	require.Error(t, err)
	assert.Empty(t, client.RegisterCalls())

	resp, err := svc.Register(context.Background(), "bob", "long enough password")
	require.NoError(t, err)
	assert.Equal(t, "new-id", resp.UserID)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := TokenExpiry(createTestToken(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = TokenExpiry("not-a-token")
	assert.Error(t, err)
}
