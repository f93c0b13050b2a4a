package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-dairy/internal/common"
)

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Limiter counts hits per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// StoreLimiter applies a fixed ulule rate over any limiter.Store.
type StoreLimiter struct {
	Store limiter.Store
	Rate  limiter.Rate
}

// NewStoreLimiter parses a formatted rate such as "5-M" or "20-H".
func NewStoreLimiter(store limiter.Store, formatted string) (*StoreLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	return &StoreLimiter{Store: store, Rate: rate}, nil
}

// NewRedisStore returns a limiter store sharing counters across instances.
func NewRedisStore(client *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

func (l *StoreLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	lctx, err := l.Store.Get(ctx, key, l.Rate)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		ResetAt:   time.Unix(lctx.Reset, 0),
	}, nil
}

// Handler enforces a limit before delegating to the next handler. Limiter
// failures fail open and are reported to OnError.
type Handler struct {
	Limiter Limiter
	Scope   string
	Key     func(*http.Request) string
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil {
		return next
	}
	keyFn := h.Key
	if keyFn == nil {
		keyFn = ByRemoteHost
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := h.Scope + ":" + keyFn(r)
		decision, err := h.Limiter.Allow(r.Context(), key)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := max(int(time.Until(decision.ResetAt).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ByRemoteHost keys requests by client address.
func ByRemoteHost(r *http.Request) string {
	return common.RemoteHost(r)
}

// ByAdmin keys authenticated requests by admin username and falls back to the
// client address.
func ByAdmin(r *http.Request) string {
	if admin, ok := common.Admin(r.Context()); ok {
		return "admin:" + admin
	}
	return ByRemoteHost(r)
}
