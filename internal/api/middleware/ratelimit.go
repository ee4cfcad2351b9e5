package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/campusreg/server/internal/config"
	"golang.org/x/time/rate"
)

// Stale bucket eviction. Without it every distinct client IP would pin a
// limiter in memory forever.
const (
	limiterTTL    = 15 * time.Minute
	cleanupPeriod = 5 * time.Minute
)

// RateLimit throttles requests per client IP using a token bucket refilled at
// the configured per-minute rate. Health endpoints are never limited so
// orchestrator probes keep working while the API sheds load.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	store := newLimiterStore(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := store.limiter(store.clientKey(r))
			if limiter != nil && !limiter.Allow() {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limiterStore holds one token bucket per client key.
type limiterStore struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	perMinute int
	burst     int
	trusted   []*net.IPNet
	stop      chan struct{}
}

type clientBucket struct {
	bucket *rate.Limiter
	seen   time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.PerMinute
	}

	// Malformed CIDRs are dropped here rather than rejected per request.
	var trusted []*net.IPNet
	for _, raw := range cfg.TrustedProxyCIDRs {
		if _, network, err := net.ParseCIDR(raw); err == nil {
			trusted = append(trusted, network)
		}
	}

	store := &limiterStore{
		clients:   make(map[string]*clientBucket),
		perMinute: cfg.PerMinute,
		burst:     burst,
		trusted:   trusted,
		stop:      make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

// limiter returns the bucket for key, creating it on first sight. A nil
// return means limiting is disabled.
func (s *limiterStore) limiter(key string) *rate.Limiter {
	if s.perMinute <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[key]; ok {
		client.seen = time.Now()
		return client.bucket
	}

	bucket := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.burst)
	s.clients[key] = &clientBucket{bucket: bucket, seen: time.Now()}
	return bucket
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictStale()
		case <-s.stop:
			return
		}
	}
}

func (s *limiterStore) evictStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-limiterTTL)
	for key, client := range s.clients {
		if client.seen.Before(cutoff) {
			delete(s.clients, key)
		}
	}
}

// Stop ends the background eviction goroutine.
func (s *limiterStore) Stop() {
	close(s.stop)
}

// clientKey identifies the caller for bucketing. Forwarding headers are only
// honored when the direct peer is a trusted proxy, so clients cannot reset
// their bucket by spoofing X-Forwarded-For.
func (s *limiterStore) clientKey(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	if !s.trustedProxy(ip) {
		return ip
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return ip
}

func (s *limiterStore) trustedProxy(ip string) bool {
	if len(s.trusted) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range s.trusted {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}
