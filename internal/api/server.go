package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/config"
)

// Engine is what the server needs from the game engine: the HTTP read
// side plus the session side.
type Engine interface {
	EngineInterface
	GameServer
}

// Server is the HTTP API server with the websocket session endpoint.
type Server struct {
	engine      Engine
	router      *chi.Mux
	hub         *WebSocketHub
	rateLimiter *IPRateLimiter
	admin       *SessionManager
	http        *http.Server
	log         zerolog.Logger
}

// NewServer creates a server around hub and engine. The engine must have
// been created with hub as its link. Nothing starts until Start.
func NewServer(cfg config.AppConfig, engine Engine, hub *WebSocketHub, log zerolog.Logger) *Server {
	log = log.With().Str("component", "api").Logger()
	s := &Server{
		engine:      engine,
		hub:         hub,
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		admin:       NewSessionManager(cfg.Server.AdminToken, log),
		log:         log,
	}
	hub.Attach(engine)

	s.router = NewRouter(RouterConfig{
		Engine:        engine,
		Sessions:      hub,
		Admin:         s.admin,
		RateLimiter:   s.rateLimiter,
		CORSOrigins:   hub.origins,
		ExposeMetrics: true,
		Logger:        log,
	})
	s.router.Get("/ws", hub.HandleWebSocket)
	return s
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *WebSocketHub { return s.hub }

// Start serves on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Bool("admin", s.admin.Enabled()).Msg("API server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects sessions, stops accepting requests and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	s.rateLimiter.Stop()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
