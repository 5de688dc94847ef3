package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"tvcatalog/internal/config"
	"tvcatalog/internal/observability"
)

type RouterParams struct {
	Logger  *slog.Logger
	Config  *config.Config
	Handler *Handler
	Metrics *observability.Metrics
	// MountMetrics serves /metrics on the API router instead of a
	// separate port.
	MountMetrics bool
}

// NewRouter builds the chi router with the catalog middleware chain.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := params.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	r := chi.NewRouter()
	for _, mw := range middlewareStack(logger, cfg, params.Metrics) {
		r.Use(mw)
	}

	params.Handler.Routes(r)
	if params.MountMetrics {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}

func middlewareStack(logger *slog.Logger, cfg *config.Config, metrics *observability.Metrics) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
	})

	timeout := 10 * time.Second
	if cfg.AppRequestTimeout > 0 {
		timeout = cfg.AppRequestTimeout
	}
	perMinute := 600
	if cfg.RateLimitPerMinute > 0 {
		perMinute = cfg.RateLimitPerMinute
	}

	return []func(http.Handler) http.Handler{
		requestID,
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					problem(w, http.StatusBadRequest, "Blocked", "")
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(perMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		metrics.Middleware,
		requestLogger(logger),
	}
}

// requestID assigns a UUID to requests that arrive without one and echoes
// it back to the caller.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
