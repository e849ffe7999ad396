package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

// RateLimitConfig sizes the token bucket kept per client IP and route.
type RateLimitConfig struct {
	Burst        int
	RefillPerMin int
	MaxEntries   int           // idle buckets are dropped early once this many are tracked
	IdleTTL      time.Duration // a bucket untouched this long is forgotten
	TrustProxy   bool          // resolve the client IP from proxy headers
	Message      string
	Logger       logger.Logger
	Now          func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

type limiter struct {
	cfg      RateLimitConfig
	perSec   float64
	capacity float64

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerMin = max(cfg.RefillPerMin, 1)
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests, please try again later"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &limiter{
		cfg:       cfg,
		perSec:    float64(cfg.RefillPerMin) / 60,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[string]*bucket),
		lastPrune: cfg.Now(),
	}
}

// take spends one token for key. When none is left it reports how many
// seconds until the next one.
func (l *limiter) take(key string, now time.Time) (ok bool, remaining, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= l.cfg.IdleTTL || (l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.prune(now)
	}

	b, found := l.buckets[key]
	if !found {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.lastSeen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.perSec)
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false, 0, max(int(math.Ceil((1-b.tokens)/l.perSec)), 1)
	}
	b.tokens--
	return true, int(b.tokens), 0
}

func (l *limiter) prune(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastPrune = now
}

// RateLimit answers 429 with a JSON message once a client used up its bucket
// for the requested route.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, l.cfg.TrustProxy)
			ok, remaining, retryAfter := l.take(ip+" "+r.URL.Path, l.cfg.Now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				l.cfg.Logger.Warn("rate limited",
					logger.String("client_ip", ip),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after", retryAfter))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				utils.WriteError(w, http.StatusTooManyRequests, l.cfg.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
