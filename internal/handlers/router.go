package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/citizenwatch/roadwatch-server/internal/metrics"
	"github.com/citizenwatch/roadwatch-server/internal/middleware"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Reports *ReportHandler
	Auth    *AuthHandler
	Health  *HealthHandler
	UI      *UIHandler
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics; nil uses promhttp.Handler().
	MetricsHandler http.Handler

	AllowedOrigins []string
	RateLimitRPM   int

	// UploadDir, if set, is served at UploadPath for the local store.
	UploadDir  string
	UploadPath string

	Logger *zap.Logger
}

// NewRouter builds the chi router with global middleware and all routes.
func NewRouter(c RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(c.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(c.Metrics.Middleware)
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	metricsHandler := c.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Get("/", c.UI.Index)

	if c.UploadDir != "" {
		fs := http.StripPrefix(c.UploadPath+"/", http.FileServer(http.Dir(c.UploadDir)))
		r.Handle(c.UploadPath+"/*", fs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(c.RateLimitRPM))

		r.Route("/api", func(r chi.Router) {
			r.Post("/report", c.Reports.Submit)
			r.Get("/dashboard", c.Reports.Dashboard)
			r.Post("/update-status", c.Reports.UpdateStatus)

			r.Route("/reports/{id}", func(r chi.Router) {
				r.Get("/", c.Reports.Get)
				r.Get("/history", c.Reports.History)
			})

			r.Route("/v1/health", func(r chi.Router) {
				r.Get("/", c.Health.Check)
				r.Get("/ready", c.Health.Ready)
			})
		})

		// Legacy paths kept for existing clients
		r.Post("/report", c.Reports.Submit)
		r.Get("/dashboard_data", c.Reports.Dashboard)
		r.Post("/update_status", c.Reports.UpdateStatus)

		r.Post("/login", c.Auth.Login)
		r.Post("/logout", c.Auth.Logout)
	})

	return r
}
