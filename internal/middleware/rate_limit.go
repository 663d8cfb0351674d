package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"payflow-backend/internal/config"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager tracks per-IP limiters with lifecycle control. General
// traffic and confirmation attempts are limited independently: a client
// browsing options must not be able to burn the confirm budget.
type RateLimitManager struct {
	visitors          map[string]*visitor
	visitorsMu        sync.RWMutex
	confirmVisitors   map[string]*visitor
	confirmVisitorsMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors:        make(map[string]*visitor),
		confirmVisitors: make(map[string]*visitor),
		ctx:             managerCtx,
		cancel:          cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

func getLimiter(limiters map[string]*visitor, mu *sync.RWMutex, ip string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	if requestsPerWindow <= 0 {
		return nil
	}

	v, exists := limiters[ip]
	if !exists {
		if windowSeconds <= 0 {
			windowSeconds = 60
		}

		limitPerSecond := float64(requestsPerWindow) / float64(windowSeconds)
		limit := rate.Limit(limitPerSecond)
		if limitPerSecond <= 0 {
			limit = rate.Inf
		}

		if burst <= 0 || burst < requestsPerWindow {
			burst = requestsPerWindow
		}

		limiter := rate.NewLimiter(limit, burst)
		limiters[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// GetVisitor retrieves or creates the general limiter for an IP.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	return getLimiter(m.visitors, &m.visitorsMu, ip, requestsPerWindow, windowSeconds, burst)
}

// GetConfirmLimiter retrieves or creates the confirmation limiter for an IP.
func (m *RateLimitManager) GetConfirmLimiter(ip string, requestsPerWindow, windowSeconds int) *rate.Limiter {
	return getLimiter(m.confirmVisitors, &m.confirmVisitorsMu, ip, requestsPerWindow, windowSeconds, 0)
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *RateLimitManager) cleanup() {
	m.visitorsMu.Lock()
	for ip, v := range m.visitors {
		if time.Since(v.lastSeen) > 3*time.Minute {
			delete(m.visitors, ip)
		}
	}
	m.visitorsMu.Unlock()

	m.confirmVisitorsMu.Lock()
	for ip, v := range m.confirmVisitors {
		if time.Since(v.lastSeen) > 10*time.Minute {
			delete(m.confirmVisitors, ip)
		}
	}
	m.confirmVisitorsMu.Unlock()
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}

// RateLimitMiddleware limits request rate per IP across the whole API.
func RateLimitMiddleware(manager *RateLimitManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil || shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(
			c.ClientIP(),
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			cfg.RateLimitBurst,
		)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ConfirmRateLimitMiddleware limits confirmation attempts per IP. Confirmation
// hits the payment gateway, so its budget is much tighter than general
// traffic.
func ConfirmRateLimitMiddleware(manager *RateLimitManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetConfirmLimiter(
			c.ClientIP(),
			cfg.ConfirmRateLimitRequests,
			cfg.ConfirmRateLimitWindow,
		)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":          "confirmation rate limit exceeded",
				"retry_after":    cfg.ConfirmRateLimitWindow,
				"max_requests":   cfg.ConfirmRateLimitRequests,
				"window_seconds": cfg.ConfirmRateLimitWindow,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	switch r.URL.Path {
	case "/health", "/metrics":
		return true
	}

	return false
}
