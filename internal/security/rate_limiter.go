package security

import (
	"context"
	"sync"
	"time"

	"github.com/raaihank/lgpd-sentinel/internal/config"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client
type RateLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	mu      sync.Mutex
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	perMinute := cfg.RateLimit.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		enabled: cfg.RateLimit.Enabled,
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether a request from clientIP may proceed now
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.enabled {
		return true
	}
	return r.get(clientIP).Allow()
}

// Clients returns the number of tracked clients
func (r *RateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *RateLimiter) get(clientIP string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientIP]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientIP] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

// CleanupIdle forgets clients not seen since the cutoff
func (r *RateLimiter) CleanupIdle(maxIdle time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for ip, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
		}
	}
}

// StartCleanupRoutine removes idle clients every interval until ctx is done
func (r *RateLimiter) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.CleanupIdle(time.Hour)
			}
		}
	}()
}
