package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fitd/internal/manager"
	"fitd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Fit(name string, X [][]float64, y []any, kind string, params map[string]any) (string, error)
	Predict(name string, X [][]float64) ([]any, error)
	Load(name string) (manager.LoadStatus, error)
	Unload(name string) error
	Remove(name string) error
	RemoveAll() (int, error)
	Status() types.StatusResponse
	ListModels() ([]types.ModelInfo, error)
	Jobs() ([]types.JobStatus, error)
	Job(name string) (types.JobStatus, error)
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	if rateLimitPerMinute > 0 {
		r.Use(rateLimiter())
	}

	h := &handlers{svc: svc}

	r.Group(func(r chi.Router) {
		// Compression for JSON endpoints
		r.Use(middleware.Compress(5))
		r.Use(RequestLogMiddleware)

		r.Post("/fit", h.fit)
		r.Post("/predict", h.predict)
		r.Post("/load", h.load)
		r.Post("/unload", h.unload)
		r.Post("/remove", h.remove)
		r.Post("/remove_all", h.removeAll)

		r.Get("/status", h.status)
		r.Get("/models", h.models)
		r.Get("/jobs", h.jobs)
		r.Get("/jobs/{name}", h.job)
	})

	// websocket upgrades must not pass through the compressor
	r.Get("/events", eventsHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}
