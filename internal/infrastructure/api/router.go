package api

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"shopify-reorder/internal/infrastructure/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	Logger zerolog.Logger
	// CORSOrigins lists cross-origin callers. Empty means same-origin only;
	// a wildcard never gets credentials.
	CORSOrigins []string
	// SwaggerJSON is served at /swagger/doc.json when set.
	SwaggerJSON []byte
	// Ready reports readiness for /health. Nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter wires the handlers and middleware.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(SecurityHeaders)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: !slices.Contains(opts.CORSOrigins, "*"),
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(req); err != nil {
				hlog.FromRequest(req).Error().Err(err).Msg("Health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if len(opts.SwaggerJSON) > 0 {
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write(opts.SwaggerJSON)
		})
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth", h.BeginAuth)
		r.Get("/auth/callback", h.AuthCallback)
		r.Get("/orders", h.ListOrders)
		r.Post("/reorder", h.Reorder)
		r.Get("/session", h.Session)
		r.Post("/logout", h.Logout)
	})

	return r
}

// SecurityHeaders sets the response headers every endpoint carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Legacy mode puts tokens in URLs.
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			log := zerolog.Ctx(r.Context())
			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("url", redactURL(r.URL)).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}

// redactURL hides credentials and one-time codes from logged URLs.
func redactURL(u *url.URL) string {
	q := u.Query()
	changed := false
	for _, key := range []string{"accessToken", "code", "hmac"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.RequestURI()
	}
	return u.Path + "?" + q.Encode()
}
