package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"example.com/booking/internal/auth"
)

var rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "booking_service",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests refused by the rate limiter, labeled by method.",
}, []string{"method"})

func init() {
	prometheus.MustRegister(rejectedCounter)
}

// StatsRecorder receives every rate-limit decision.
type StatsRecorder interface {
	Record(ctx context.Context, event StatsEvent) error
}

// StatsEvent describes one decision.
type StatsEvent struct {
	Key     string
	Allowed bool
	Method  string
	Path    string
	At      time.Time
}

// KeyFunc derives the bucket key of a request.
type KeyFunc func(r *http.Request) string

// Options configures Middleware.
type Options struct {
	Store  *Store
	Stats  StatsRecorder
	KeyFn  KeyFunc
	Logger zerolog.Logger
}

// DefaultKeyFunc keys authenticated callers by user id and everyone else by
// client address.
func DefaultKeyFunc(r *http.Request) string {
	if claims, ok := auth.FromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(claims.UserID, 10)
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	if r.RemoteAddr != "" {
		return "ip:" + r.RemoteAddr
	}
	return "unknown"
}

// Middleware refuses requests over the configured rate with 429 and a
// Retry-After header in whole seconds.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			dec := opts.Store.Decide(key)

			if opts.Stats != nil {
				if err := opts.Stats.Record(r.Context(), StatsEvent{
					Key:     key,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				}); err != nil {
					opts.Logger.Warn().Err(err).Msg("rate limit stats not recorded")
				}
			}

			if !dec.Allowed {
				rejectedCounter.WithLabelValues(r.Method).Inc()
				seconds := int(math.Ceil(dec.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"type":   "rate_limited",
					"detail": "too many requests, retry later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
