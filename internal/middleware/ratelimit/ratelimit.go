package ratelimit

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/metrics"
)

type Config struct {
	PerMinute       int
	Burst           int
	CleanupInterval time.Duration
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter throttles requests per client IP. Used in front of login and
// register so password guessing is bounded.
type Limiter struct {
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	metrics metrics.Recorder

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, rec metrics.Recorder) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	l := &Limiter{
		limit:   rate.Limit(float64(cfg.PerMinute) / 60.0),
		burst:   cfg.Burst,
		ttl:     cfg.CleanupInterval * 2,
		metrics: rec,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop(cfg.CleanupInterval)
	return l
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) Middleware(route string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if l.get(ip).Allow() {
				return next(c)
			}

			l.metrics.RateLimited(route)
			logging.FromContext(c.Request().Context()).Warn("rate_limited", "status", 429, "route", route, "remote_ip", ip)
			c.Response().Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			return apperr.TooManyRequests("too many requests, try again later")
		}
	}
}

func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (l *Limiter) retryAfter() int {
	sec := int(math.Ceil(1.0 / float64(l.limit)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, cl := range l.clients {
		if now.Sub(cl.lastAccess) > l.ttl {
			delete(l.clients, key)
		}
	}
}
