package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/fieldsync/pkg/api"
)

// RateLimiter ограничивает частоту запросов по ключу (IP клиента): фиксированное окно,
// rate запросов на window
type RateLimiter struct {
	buckets    map[string]*bucket
	logger     *slog.Logger
	stopC      chan struct{}
	now        func() time.Time
	rate       int
	window     time.Duration
	trustProxy bool
	mu         sync.Mutex
	stopOnce   sync.Once
}

type bucket struct {
	lastRefill time.Time
	tokens     int
}

// RateLimitConfig параметры RateLimiter
type RateLimitConfig struct {
	Rate   int
	Window time.Duration
	// TrustProxy разрешает брать IP из X-Forwarded-For / X-Real-IP.
	// Включать только за доверенным reverse proxy.
	TrustProxy bool
}

// NewRateLimiter создает limiter и запускает очистку неактивных buckets.
// Вызывающий обязан вызвать Stop.
func NewRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	return newRateLimiter(cfg, logger, time.Now)
}

func newRateLimiter(cfg RateLimitConfig, logger *slog.Logger, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       cfg.Rate,
		window:     cfg.Window,
		trustProxy: cfg.TrustProxy,
		logger:     logger,
		now:        now,
		stopC:      make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.stopC:
			return
		}
	}
}

// cleanupOldBuckets удаляет buckets, не использовавшиеся дольше двух окон
func (rl *RateLimiter) cleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.window*2 {
			delete(rl.buckets, key)
		}
	}
}

// Stop останавливает очистку. Повторный вызов безопасен.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopC)
	})
}

// Allow проверяет, разрешен ли запрос для ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.lastRefill) >= rl.window {
		b = &bucket{tokens: rl.rate, lastRefill: now}
		rl.buckets[key] = b
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Middleware отвечает 429 с Retry-After, когда лимит исчерпан
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.clientIP(r)

		if !rl.Allow(key) {
			rl.logger.Warn("rate limit exceeded",
				"ip", key,
				"method", r.Method,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter(rl.window))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{
				Error:   http.StatusText(http.StatusTooManyRequests),
				Message: "rate limit exceeded, please try again later",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP извлекает IP клиента; заголовки прокси учитываются только при trustProxy
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
