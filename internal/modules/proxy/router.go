package proxy

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// DefaultAllowedOrigins are the local development origins allowed to call the relay.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// RouterConfig holds relay router configuration
type RouterConfig struct {
	Handler        *Handler
	AllowedOrigins []string
	Log            zerolog.Logger
}

type router struct {
	mux *chi.Mux
	log zerolog.Logger
}

// NewRouter builds the relay HTTP surface.
func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	rt := &router{
		mux: chi.NewRouter(),
		log: cfg.Log.With().Str("component", "proxy_server").Logger(),
	}

	rt.mux.Use(middleware.Recoverer)
	rt.mux.Use(middleware.RequestID)
	rt.mux.Use(noSniff)
	rt.mux.Use(rt.loggingMiddleware)
	rt.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	rt.mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	rt.mux.Get("/api/yahoo-finance/{symbol}", cfg.Handler.HandleChart)

	return rt.mux
}

// noSniff sets X-Content-Type-Options on every response.
func noSniff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (rt *router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		rt.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
