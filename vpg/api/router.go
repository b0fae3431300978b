// Package api serves the timeline paging API on top of an asset library.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
)

// SaveHook runs after an asset was saved through the API.
type SaveHook func(ctx context.Context, id string) error

// Deps are the collaborators behind the routes. Gatherer and OnSave are optional.
type Deps struct {
	Library  library.Repository
	Gatherer prometheus.Gatherer
	OnSave   SaveHook
	Logger   zerolog.Logger
	// MaxPageSize caps the pageSize query parameter.
	MaxPageSize    int
	RequestTimeout time.Duration
}

// NewRouter builds the chi router.
//
// Routes:
//   - GET /health
//   - GET /api/timeline/buckets
//   - GET /api/timeline/bucket
//   - GET /api/assets/{id}
//   - PUT /api/assets/{id}
//   - PUT /api/assets/{id}/favorite
//   - GET /metrics
func NewRouter(deps Deps) http.Handler {
	if deps.MaxPageSize <= 0 {
		deps.MaxPageSize = 5000
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/timeline/buckets", h.timeBuckets)
		r.Get("/timeline/bucket", h.timeBucket)
		r.Route("/assets/{id}", func(r chi.Router) {
			r.Get("/", h.getAsset)
			r.Put("/", h.saveAsset)
			r.Put("/favorite", h.setFavorite)
		})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("API request completed")
		})
	}
}
