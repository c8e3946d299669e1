package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"omenchain/core"
	"omenchain/gateway/config"
)

// New builds the read-only REST surface over the node: market, positions,
// projects, investments, and platform statistics, plus health and metrics
// endpoints. All handlers serve committed state only.
func New(node *core.Node, cfg config.Config) http.Handler {
	gw := &gateway{
		node:   node,
		logger: slog.Default().With("component", "gateway"),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(gw.logRequests)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors(cfg.AllowedOrigins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/market", gw.market)
		v1.Get("/market/quote", gw.quote)
		v1.Get("/positions/{address}", gw.position)
		v1.Get("/projects", gw.projects)
		v1.Get("/projects/{id}", gw.project)
		v1.Get("/projects/{id}/investments/{address}", gw.investment)
		v1.Get("/stats", gw.stats)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}

type ctxKey string

const requestIDKey ctxKey = "requestID"

// requestID tags every request with a UUID and echoes it to the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r.Context(), id)))
	})
}

func (g *gateway) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		g.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"requestId", requestIDFromContext(r.Context()),
			"duration", time.Since(started).String(),
		)
	})
}

func cors(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
