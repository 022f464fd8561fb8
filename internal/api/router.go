package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/game"
)

// EngineInterface is the part of the game engine the HTTP API reads and
// drives. Every method is safe from request goroutines.
type EngineInterface interface {
	Snapshot() game.GameSnapshot
	Players() []game.PlayerInfo
	Leaderboard(n int) []game.LeaderboardEntry
	EventLog() *game.EventLog
	RestartRound() bool
	Leave(id combat.CharacterID) bool
}

// SessionCloser drops the network session controlling a character.
type SessionCloser interface {
	CloseSession(id combat.CharacterID) bool
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:          engine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Sessions, if set, is told when an admin removes a character.
	Sessions SessionCloser

	// Admin handles admin login. Nil or a manager without a token turns
	// the admin routes off.
	Admin *SessionManager

	// RateLimiter is an optional pre-configured rate limiter. If nil, one
	// is created from RateLimitConfig or DefaultRateLimitConfig; the caller
	// then cannot stop its cleanup goroutine, so servers pass their own.
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to DefaultOrigins.
	CORSOrigins []string

	// ExposeMetrics serves /metrics on this router as well as on the
	// debug listener.
	ExposeMetrics bool

	// Logger receives one line per request. Nop disables request logging.
	Logger zerolog.Logger
}

type routerHandlers struct {
	engine   EngineInterface
	sessions SessionCloser
	log      zerolog.Logger
}

// NewRouter constructs the HTTP router with all middleware and routes. It
// starts nothing and opens no listeners.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting before CORS to reject early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rlCfg)
	}
	r.Use(rateLimiter.Middleware)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return IsAllowedOrigin(origins, origin)
		},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := &routerHandlers{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		log:      cfg.Logger,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/state", h.handleGetState)
		r.Get("/characters", h.handleGetCharacters)
		r.Get("/characters/{id}", h.handleGetCharacter)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/events/stats", h.handleEventStats)

		if cfg.Admin != nil && cfg.Admin.Enabled() {
			admin := cfg.Admin
			r.Route("/admin", func(r chi.Router) {
				r.Post("/login", admin.HandleLogin)
				r.Post("/logout", admin.HandleLogout)
				r.Get("/status", admin.HandleAuthStatus)

				r.Group(func(r chi.Router) {
					r.Use(admin.AdminAuthMiddleware)
					r.Post("/restart", h.handleRestartRound)
					r.Delete("/characters/{id}", h.handleRemoveCharacter)
				})
			})
		}
	})

	if cfg.ExposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requestLogger logs each request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
