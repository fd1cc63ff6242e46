// Package server собирает HTTP API authority: auth, BrAPI коллекции и health check.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/internal/server/middleware"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/pkg/api"
)

// Deps зависимости роутера
type Deps struct {
	Users       storage.UserStorage
	Tokens      storage.TokenStorage
	Documents   storage.DocumentStorage
	DB          handlers.Pinger
	Limiter     *middleware.RateLimiter
	Collections map[string]api.Collection
	JWT         handlers.JWTConfig
	Version     string
}

// NewRouter returns the authority handler wrapped in recovery and logging middleware.
// Auth endpoints go through the rate limiter when one is set.
func NewRouter(logger *slog.Logger, deps Deps) (http.Handler, error) {
	collections := deps.Collections
	if collections == nil {
		collections = api.DefaultCollections()
	}

	authHandler := handlers.NewAuthHandler(logger.With("component", "auth"), deps.Users, deps.Tokens, deps.JWT)
	docHandler, err := handlers.NewDocumentHandler(logger.With("component", "documents"), deps.Documents, collections)
	if err != nil {
		return nil, fmt.Errorf("failed to create document handler: %w", err)
	}
	healthHandler := handlers.NewHealthHandler(logger, deps.DB, deps.Version)

	limited := func(h http.HandlerFunc) http.Handler {
		if deps.Limiter == nil {
			return h
		}
		return deps.Limiter.Middleware(h)
	}
	authed := middleware.AuthMiddleware(logger, deps.JWT)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	mux.Handle("POST /api/v1/auth/register", limited(authHandler.Register))
	mux.Handle("POST /api/v1/auth/login", limited(authHandler.Login))
	mux.Handle("POST /api/v1/auth/refresh", limited(authHandler.Refresh))
	mux.Handle("POST /api/v1/auth/logout", authed(http.HandlerFunc(authHandler.Logout)))

	for _, et := range docHandler.EntityTypes() {
		c, _ := docHandler.Collection(et)
		path := "/" + strings.Trim(c.Path, "/")

		mux.Handle("GET "+path, authed(docHandler.List(et)))
		mux.Handle("POST "+path, authed(docHandler.Create(et)))
		mux.Handle("GET "+path+"/{id}", authed(docHandler.Get(et)))
		mux.Handle("PUT "+path+"/{id}", authed(docHandler.Update(et)))
		mux.Handle("DELETE "+path+"/{id}", authed(docHandler.Delete(et)))
	}

	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)
	return handler, nil
}
