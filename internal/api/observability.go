package api

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
)

// Metrics with bounded cardinality (no per-character labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ceremony_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	characterCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ceremony_characters",
		Help: "Live characters on this node",
	})

	projectileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ceremony_projectiles",
		Help: "Projectiles in flight or stuck",
	})

	// kind is an OutcomeKind name, stage one of the verification stages.
	combatOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceremony_combat_outcomes_total",
		Help: "Adjudicated hit claims by outcome and stage",
	}, []string{"kind", "stage"})

	kills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ceremony_kills_total",
		Help: "Characters killed",
	})

	// name comes from the closed set of registered calls.
	rpcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceremony_rpc_total",
		Help: "Remote calls by direction and name",
	}, []string{"direction", "name"})

	droppedCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ceremony_dropped_commands_total",
		Help: "Commands dropped because the engine inbox was full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceremony_connection_rejected_total",
		Help: "Requests and connections refused by limits or checks",
	}, []string{"reason"}) // Bounded: see the Reject* constants

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ceremony_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"}) // route is the chi pattern, not the URL

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ceremony_websocket_sessions_active",
		Help: "Currently joined websocket sessions",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceremony_websocket_messages_total",
		Help: "Websocket frames by direction",
	}, []string{"direction"})
)

// Reasons recorded by RecordConnectionRejected.
const (
	RejectRateLimit   = "rate_limit"
	RejectOrigin      = "origin"
	RejectWSTotal     = "ws_total_limit"
	RejectWSPerIP     = "ws_ip_limit"
	RejectRPCLimit    = "rpc_limit"
	RejectImpersonate = "impersonation"
	RejectMalformed   = "malformed"
	RejectSlowClient  = "slow_client"
	RejectUnauthorize = "unauthorized"
)

// PromMetrics reports engine measurements to the prometheus collectors.
type PromMetrics struct{}

func (PromMetrics) ObserveTick(d time.Duration, characters, projectiles int) {
	tickDuration.Observe(d.Seconds())
	characterCount.Set(float64(characters))
	projectileCount.Set(float64(projectiles))
}

func (PromMetrics) CountOutcome(o combat.Outcome) {
	combatOutcomes.WithLabelValues(o.Kind.String(), string(o.Stage)).Inc()
	if o.Killed {
		kills.Inc()
	}
}

func (PromMetrics) CountCall(direction, name string) {
	rpcTotal.WithLabelValues(direction, name).Inc()
}

func (PromMetrics) CountDroppedCommand() {
	droppedCommands.Inc()
}

// RecordConnectionRejected increments the rejection counter. reason must be
// one of the Reject* constants.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections sets the joined session gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// CountWSMessage counts one frame, direction "in" or "out".
func CountWSMessage(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}

// requestMetrics records latency per matched route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		requestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// DebugHandler serves pprof, /metrics and /health.
func DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// StartDebugServer serves DebugHandler on localhost:port in the background.
// The listener never binds a public interface. Port 0 disables it.
func StartDebugServer(port int, log zerolog.Logger) *http.Server {
	if port <= 0 {
		log.Info().Msg("Debug server disabled")
		return nil
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           DebugHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Debug server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Debug server stopped")
		}
	}()
	return srv
}
