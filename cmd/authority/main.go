package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/fieldsync/internal/server"
	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/internal/server/middleware"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 5 * time.Second

type config struct {
	addr            string
	dbPath          string
	jwtSecret       string
	accessTTL       time.Duration
	refreshTTL      time.Duration
	cleanupInterval time.Duration
	authRate        int
	authWindow      time.Duration
	trustProxy      bool
	debug           bool
}

func main() {
	cfg, showVersion := parseFlags(os.Args[1:])
	if showVersion {
		printVersion()
		return
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("authority stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
}

// parseFlags читает флаги; переменные окружения задают значения по умолчанию
func parseFlags(args []string) (config, bool) {
	var cfg config
	fs := flag.NewFlagSet("authority", flag.ExitOnError)

	fs.StringVar(&cfg.addr, "addr", envOr("AUTHORITY_ADDR", ":8080"), "listen address")
	fs.StringVar(&cfg.dbPath, "db", envOr("AUTHORITY_DB", "authority.db"), "path to the sqlite database")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", os.Getenv("AUTHORITY_JWT_SECRET"), "HMAC secret for access tokens (at least 32 bytes)")
	fs.DurationVar(&cfg.accessTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	fs.DurationVar(&cfg.refreshTTL, "refresh-ttl", 7*24*time.Hour, "refresh token lifetime")
	fs.DurationVar(&cfg.cleanupInterval, "cleanup-interval", time.Hour, "how often expired refresh tokens are purged")
	fs.IntVar(&cfg.authRate, "auth-rate", 10, "auth requests per client per window")
	fs.DurationVar(&cfg.authWindow, "auth-window", time.Minute, "rate limit window for auth endpoints")
	fs.BoolVar(&cfg.trustProxy, "trust-proxy", false, "take the client IP from X-Forwarded-For")
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	showVersion := fs.Bool("version", false, "Show version information")

	_ = fs.Parse(args)
	return cfg, *showVersion
}

func (c config) validate() error {
	if len(c.jwtSecret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes (set AUTHORITY_JWT_SECRET or -jwt-secret)")
	}
	if c.accessTTL <= 0 || c.refreshTTL <= 0 || c.cleanupInterval <= 0 || c.authWindow <= 0 {
		return errors.New("durations must be positive")
	}
	if c.authRate <= 0 {
		return errors.New("auth rate must be positive")
	}
	return nil
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	st, err := sqlite.New(ctx, cfg.dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:       cfg.authRate,
		Window:     cfg.authWindow,
		TrustProxy: cfg.trustProxy,
	}, logger)
	defer limiter.Stop()

	handler, err := server.NewRouter(logger, server.Deps{
		Users:     st,
		Tokens:    st,
		Documents: st,
		DB:        st,
		Limiter:   limiter,
		JWT: handlers.JWTConfig{
			Secret:          []byte(cfg.jwtSecret),
			AccessTokenTTL:  cfg.accessTTL,
			RefreshTokenTTL: cfg.refreshTTL,
		},
		Version: Version,
	})
	if err != nil {
		return err
	}

	go purgeExpiredTokens(ctx, st, cfg.cleanupInterval, logger)

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authority listening", "addr", cfg.addr, "version", Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// purgeExpiredTokens периодически удаляет истекшие refresh tokens
func purgeExpiredTokens(ctx context.Context, st *sqlite.Storage, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := st.DeleteExpiredTokens(ctx, now)
			if err != nil {
				logger.Warn("failed to purge expired tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired refresh tokens purged", "count", n)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("fieldsync authority\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
