// Package app is the composition root of the client: it builds and owns one instance of
// every component and wires their notifications together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/auth"
	"github.com/iudanet/fieldsync/internal/client/config"
	"github.com/iudanet/fieldsync/internal/client/events"
	"github.com/iudanet/fieldsync/internal/client/metrics"
	"github.com/iudanet/fieldsync/internal/client/network"
	"github.com/iudanet/fieldsync/internal/client/pending"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/client/storage/boltdb"
	"github.com/iudanet/fieldsync/internal/client/store"
	"github.com/iudanet/fieldsync/internal/client/sync"
	"github.com/iudanet/fieldsync/internal/crdt"
)

// ErrNotDurable is returned when durable storage was required but could not be opened.
var ErrNotDurable = errors.New("durable storage unavailable")

// Options control how the application is assembled.
type Options struct {
	API            api.ClientAPI // overrides the HTTP client (tests)
	Online         bool          // initial connectivity
	RequireDurable bool          // fail instead of falling back to an in-memory store
}

// App owns the client components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	API      api.ClientAPI
	Auth     *auth.Service
	Network  *network.Monitor
	Clock    *crdt.Clock
	Store    *store.Store
	Index    *pending.Index
	Bus      *events.Bus
	Engine   *sync.Engine
	Registry *prometheus.Registry
	Metrics  *metrics.Sync
	Session  *storage.AuthData // nil when nobody is logged in

	sessionDB *boltdb.Storage
	docs      *boltdb.Storage
	unsub     func()
}

// New assembles the application. When a session exists the documents of that user are loaded
// from durable storage before New returns; if the store cannot be opened the application runs
// in memory, unless opts.RequireDurable is set.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	sessionDB, err := boltdb.New(ctx, filepath.Join(cfg.DataDir, boltdb.SessionFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		API:       opts.API,
		Registry:  prometheus.NewRegistry(),
		sessionDB: sessionDB,
	}
	if a.API == nil {
		a.API = api.NewClient(cfg.Server,
			api.WithEndpoints(cfg.Endpoints()),
			api.WithTimeout(cfg.RequestTimeout),
			api.WithRetries(cfg.PullRetries, 200*time.Millisecond),
			api.WithLogger(logger.With("component", "api")),
		)
	}
	a.Auth = auth.NewService(a.API, sessionDB, cfg.Server, logger.With("component", "auth"))

	a.Metrics, err = metrics.New(a.Registry)
	if err != nil {
		_ = sessionDB.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	a.Registry.MustRegister(collectors.NewGoCollector())

	a.Clock = crdt.NewClock()
	a.Network = network.New(opts.Online, logger.With("component", "network"))
	a.Store = store.New(a.Clock, a.Network, logger.With("component", "store"))
	a.Store.SetIDAliases(cfg.IDAliases())
	a.Index = pending.New(a.Store, logger.With("component", "pending"))
	a.Bus = events.NewBus(logger.With("component", "events"))

	a.unsub = a.Store.Subscribe(a.onChange)

	if err := a.openScope(ctx, opts.RequireDurable); err != nil {
		a.Close()
		return nil, err
	}
	a.Index.Refresh()
	a.Metrics.Pending(a.Index.Count())

	var meta storage.MetadataStorage
	if a.docs != nil {
		meta = a.docs
	}
	a.Engine = sync.NewEngine(sync.Deps{
		API:         a.API,
		Store:       a.Store,
		Index:       a.Index,
		Network:     a.Network,
		Credentials: a.Auth,
		Metadata:    meta,
		Bus:         a.Bus,
		Metrics:     a.Metrics,
		Clock:       a.Clock,
		Logger:      logger.With("component", "sync"),
	}, sync.Options{
		Debounce:     cfg.Debounce,
		TombstoneTTL: cfg.TombstoneTTL,
		AutoSync:     cfg.AutoSync,
	})

	return a, nil
}

// openScope loads the documents of the logged in user.
func (a *App) openScope(ctx context.Context, requireDurable bool) error {
	session, err := a.Auth.Session(ctx)
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		if requireDurable {
			return auth.ErrNoCredentials
		}
		a.Logger.Warn("not logged in, documents are kept in memory only")
		return nil
	case err != nil:
		return fmt.Errorf("failed to read session: %w", err)
	}
	a.Session = session

	docs, err := boltdb.Open(ctx, a.Config.DataDir, auth.Scope(session))
	if err == nil {
		err = a.Store.Attach(ctx, docs, docs)
		if err != nil {
			_ = docs.Close()
		}
	}
	if err != nil {
		if requireDurable {
			return fmt.Errorf("%w: %w", ErrNotDurable, err)
		}
		// данные сессии могут потеряться при сбое, но работа не блокируется
		a.Logger.Error("persistent storage unavailable, running in memory", "error", err)
		return nil
	}

	a.docs = docs
	a.Logger.Debug("user store opened", "user", session.Username, "path", docs.Path())
	return nil
}

// onChange keeps the pending index current and publishes local writes on the bus.
func (a *App) onChange(c store.Change) {
	a.Index.OnChange(c.Key)
	if c.Origin != store.OriginLocal {
		return
	}

	deleted := false
	if doc, ok := a.Store.Lookup(c.Key.Type, c.Key.ID); ok {
		deleted = doc.Deleted
	}
	a.Bus.Publish(events.LocalChanged{Type: c.Key.Type, ID: c.Key.ID, Deleted: deleted})
}

// Close stops the engine and releases storage handles.
func (a *App) Close() {
	if a.Engine != nil {
		a.Engine.Stop()
	}
	if a.unsub != nil {
		a.unsub()
	}
	if a.docs != nil {
		if err := a.docs.Close(); err != nil {
			a.Logger.Warn("failed to close user store", "error", err)
		}
	}
	if err := a.sessionDB.Close(); err != nil {
		a.Logger.Warn("failed to close session storage", "error", err)
	}
}
