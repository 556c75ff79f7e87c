package httpx

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket: Requests per Window, with up to
// Burst requests available at once.
type RateLimitConfig struct {
	Requests int           `env:"REQUESTS"`
	Window   time.Duration `env:"WINDOW"`
	Burst    int           `env:"BURST"`
}

func (c RateLimitConfig) limit() rate.Limit {
	if c.Requests <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.Requests) / c.Window.Seconds())
}

// RateLimitProfiles groups the limits applied to the different endpoint
// classes. Fields can be overridden from the environment, for example
// RATELIMIT_STRICT_REQUESTS or RATELIMIT_LENIENT_WINDOW.
type RateLimitProfiles struct {
	// Strict guards credential endpoints against brute force.
	Strict RateLimitConfig `envPrefix:"STRICT_"`
	// Moderate covers token refresh and session mutation.
	Moderate RateLimitConfig `envPrefix:"MODERATE_"`
	// Lenient covers reads and health checks.
	Lenient RateLimitConfig `envPrefix:"LENIENT_"`

	// TrustedProxies lists the CIDRs whose forwarding headers are believed,
	// e.g. RATELIMIT_TRUSTED_PROXIES=10.0.0.0/8,127.0.0.1/32. Empty means
	// clients are keyed by their direct address only.
	TrustedProxies []netip.Prefix `env:"TRUSTED_PROXIES"`
}

// ClientIP returns the key extractor for the configured trusted proxies.
func (p RateLimitProfiles) ClientIP() KeyExtractor {
	return ClientIPExtractor(p.TrustedProxies)
}

// DefaultRateLimits returns the production defaults.
func DefaultRateLimits() RateLimitProfiles {
	return RateLimitProfiles{
		Strict:   RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{Requests: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{Requests: 100, Window: time.Minute, Burst: 100},
	}
}

// KeyExtractor groups requests into rate limit buckets.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the address of the direct peer. Forwarding headers
// are ignored, see ClientIPExtractor.
func IPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if addr, err := netip.ParseAddr(ip); err == nil {
		return addr.Unmap().String()
	}
	return ip
}

// ClientIPExtractor returns the client address as seen by the outermost
// trusted proxy. X-Forwarded-For and X-Real-IP are only read when the direct
// peer lies in trusted; the forwarded chain is walked right to left and the
// first hop outside trusted wins. With no trusted proxies it is
// IPKeyExtractor.
func ClientIPExtractor(trusted []netip.Prefix) KeyExtractor {
	if len(trusted) == 0 {
		return IPKeyExtractor
	}

	isTrusted := func(a netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := IPKeyExtractor(r)
		addr, err := netip.ParseAddr(peer)
		if err != nil || !isTrusted(addr) {
			return peer
		}

		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					return peer
				}
				hop = hop.Unmap()
				if !isTrusted(hop) {
					return hop.String()
				}
			}
		}

		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}
		return peer
	}
}

// UserIDKeyExtractor returns the authenticated user ID or "".
func UserIDKeyExtractor(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

const limiterSweepEvery = 5 * time.Minute

type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu        sync.Mutex
	lastSweep time.Time
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeSweep()
	return actual.(*rate.Limiter)
}

// maybeSweep drops limiters whose bucket has refilled, those keys have been
// idle long enough that a fresh limiter is equivalent.
func (rl *rateLimiter) maybeSweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastSweep) < limiterSweepEvery {
		return
	}
	rl.lastSweep = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware limits requests per key. Requests with an empty key are
// let through.
func RateLimitMiddleware(cfg RateLimitConfig, keyFn KeyExtractor) Middleware {
	rl := &rateLimiter{
		rate:      cfg.limit(),
		burst:     max(cfg.Burst, 1),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyFn(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.get(key)
			if !limiter.Allow() {
				res := limiter.Reserve()
				delay := res.Delay()
				res.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				(&APIError{
					StatusCode:  http.StatusTooManyRequests,
					Code:        "rate_limit_exceeded",
					Description: "Too many requests. Please try again later.",
				}).WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP as resolved by ip.
func RateLimitByIP(cfg RateLimitConfig, ip KeyExtractor) Middleware {
	return RateLimitMiddleware(cfg, ip)
}

// RateLimitByUser limits by authenticated user and client IP. It must run
// after AuthnMiddleware.
func RateLimitByUser(cfg RateLimitConfig, ip KeyExtractor) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		ip,
	))
}
