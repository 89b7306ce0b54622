package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/mailapi/internal/api/response"
)

const MsgRateLimited = "Rate limit exceeded"

var rejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mail_api",
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the rate limiter",
	},
	[]string{"class"},
)

// Decision is the outcome of checking one request against a set of rules.
// Limit and Remaining describe the rule closest to exhaustion.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter applies fixed-window rules. Windows are aligned to multiples of the
// rule's duration since the Unix epoch, so every replica sharing a Store
// agrees on window boundaries.
type Limiter struct {
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow records one hit for key against every rule. The request is denied as
// soon as any rule is over its limit.
func (l *Limiter) Allow(ctx context.Context, key string, rules []Rule) (Decision, error) {
	now := l.now()
	dec := Decision{Allowed: true, Remaining: math.MaxInt64}

	for i, rule := range rules {
		window := rule.Window.Nanoseconds()
		bucket := now.UnixNano() / window
		reset := time.Unix(0, (bucket+1)*window)

		count, err := l.store.Incr(ctx, windowKey(key, i, bucket), reset.Sub(now))
		if err != nil {
			return Decision{}, err
		}

		remaining := rule.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		if remaining < dec.Remaining || dec.Limit == 0 {
			dec.Limit = rule.Limit
			dec.Remaining = remaining
		}
		if count > rule.Limit {
			dec.Allowed = false
			if wait := reset.Sub(now); wait > dec.RetryAfter {
				dec.RetryAfter = wait
			}
		}
	}

	if dec.Limit == 0 {
		dec.Remaining = 0
	}
	return dec, nil
}

func windowKey(key string, rule int, bucket int64) string {
	return key + ":" + strconv.Itoa(rule) + ":" + strconv.FormatInt(bucket, 10)
}

// Middleware limits requests per client address within class. A nil Limiter
// or an empty rule set passes every request through. Store failures are
// logged and the request is let through.
func (l *Limiter) Middleware(class string, rules []Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || len(rules) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec, err := l.Allow(r.Context(), class+":"+ClientKey(r), rules)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("class", class).Msg("rate limit store unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(dec.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))

			if !dec.Allowed {
				rejectionsTotal.WithLabelValues(class).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(dec.RetryAfter.Seconds()))))
				response.WriteError(w, http.StatusTooManyRequests, MsgRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller by remote host. RealIP runs earlier in the
// chain, so forwarded headers are already folded into RemoteAddr.
func ClientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
