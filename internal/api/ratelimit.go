package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter limits HTTP requests per client IP.
type IPRateLimiter struct {
	limiters sync.Map // string -> *ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewIPRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop to end it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) limiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}
	e := &ipLimiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
	e.lastSeen.Store(now)
	v, _ := rl.limiters.LoadOrStore(ip, e)
	return v.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-2 * rl.config.CleanupInterval))
		}
	}
}

// cleanup forgets IPs not seen since cutoff.
func (rl *IPRateLimiter) cleanup(cutoff time.Time) {
	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff.UnixNano() {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow reports whether a request from ip may proceed.
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.limiter(ip).Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Middleware rejects requests over the per-IP rate with 429.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected(RejectRateLimit)
			w.Header().Set("Retry-After", "1")
			writeError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats returns allowed and rejected request counts.
func (rl *IPRateLimiter) Stats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowed.Load(),
		"rejected": rl.rejected.Load(),
	}
}

// GetClientIP extracts the client IP, trusting X-Forwarded-For and
// X-Real-IP. Deploy behind a proxy that overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ConnectionLimiter caps concurrent websocket connections per IP.
type ConnectionLimiter struct {
	mu       sync.Mutex
	counts   map[string]int
	maxPerIP int
}

// NewConnectionLimiter creates a limiter allowing maxPerIP connections.
func NewConnectionLimiter(maxPerIP int) *ConnectionLimiter {
	return &ConnectionLimiter{counts: make(map[string]int), maxPerIP: maxPerIP}
}

// Acquire takes a slot for ip. Every successful Acquire needs a Release.
func (cl *ConnectionLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.counts[ip] >= cl.maxPerIP {
		return false
	}
	cl.counts[ip]++
	return true
}

// Release returns a slot.
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if n := cl.counts[ip]; n > 1 {
		cl.counts[ip] = n - 1
	} else {
		delete(cl.counts, ip)
	}
}

// Count returns the connections held by ip.
func (cl *ConnectionLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.counts[ip]
}

// SessionLimiter budgets the server calls of one websocket session.
// Movement and rotation arrive every tick and draw from their own bucket.
type SessionLimiter struct {
	stream *rate.Limiter
	calls  *rate.Limiter
}

// NewSessionLimiter creates both buckets from limits.
func NewSessionLimiter(limits config.ResourceLimits) *SessionLimiter {
	return &SessionLimiter{
		stream: rate.NewLimiter(rate.Limit(limits.StreamRPCPerSecond), limits.StreamRPCBurst),
		calls:  rate.NewLimiter(rate.Limit(limits.RPCPerSecond), limits.RPCBurst),
	}
}

// Allow reports whether the named server call fits its bucket.
func (l *SessionLimiter) Allow(call string) bool {
	if IsStreamCall(call) {
		return l.stream.Allow()
	}
	return l.calls.Allow()
}

// IsStreamCall reports whether call is sent every tick rather than per
// action.
func IsStreamCall(call string) bool {
	switch call {
	case combat.ServerMove{}.ServerCallName(), combat.ServerSetActorRotation{}.ServerCallName():
		return true
	}
	return false
}

// DefaultOrigins are the browser origins allowed by CORS and the websocket
// upgrade when none are configured.
var DefaultOrigins = []string{
	"http://localhost",
	"http://127.0.0.1",
}

// IsAllowedOrigin reports whether a browser origin may connect. An empty
// origin is a non-browser client and is allowed. Entries match exactly or
// with any port.
func IsAllowedOrigin(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || strings.HasPrefix(origin, a+":") {
			return true
		}
	}
	return false
}
