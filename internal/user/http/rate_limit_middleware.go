package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/httputil"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = time.Hour
)

// rateLimiterStore holds per-user token buckets.
type rateLimiterStore struct {
	limiters sync.Map // map[uuid.UUID]*rateLimiterEntry
	rps      float64
	burst    int
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// RateLimitMiddleware enforces per-user rate limiting on authenticated admin requests.
//
// Must run after BasicAuthMiddleware. Requests over the limit get 429 with a
// Retry-After header. Idle limiters are evicted until ctx is done.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &rateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	go store.cleanupStale(ctx, limiterCleanupInterval)

	return func(c *gin.Context) {
		user, ok := GetUser(c.Request.Context())
		if !ok {
			logger.Error("rate limit middleware: no authenticated user in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		limiter := store.getLimiter(user.ID)
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(math.Ceil(reservation.Delay().Seconds()))
			reservation.Cancel()

			logger.Debug("rate limit exceeded",
				slog.String("user_id", user.ID.String()),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *rateLimiterStore) getLimiter(userID uuid.UUID) *rate.Limiter {
	if val, ok := s.limiters.Load(userID); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &rateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: time.Now(),
	}
	actual, _ := s.limiters.LoadOrStore(userID, entry)
	return actual.(*rateLimiterEntry).limiter
}

func (s *rateLimiterStore) evictIdle(threshold time.Time) {
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*rateLimiterEntry)
		entry.mu.Lock()
		idle := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if idle {
			s.limiters.Delete(key)
		}
		return true
	})
}

func (s *rateLimiterStore) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-limiterIdleTTL))
		}
	}
}
