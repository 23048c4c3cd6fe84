package rest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vecdb/bbann/pkg/api/rest/middleware"
	"github.com/vecdb/bbann/pkg/bbann"
)

// Config holds the REST server configuration.
type Config struct {
	Host        string
	Port        int
	CORSEnabled bool
	CORSOrigins []string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
	Search      bbann.SearchOptions
}

// Server represents the REST API server, serving a single loaded index.
// There is no separate backend to dial: the index is loaded in-process
// and queried directly.
type Server struct {
	config     Config
	handler    *Handler
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a new REST API server fronting an already-loaded
// index.
func NewServer(config Config, index *bbann.Handle) (*Server, error) {
	handler := NewHandler(index, config.Search)

	server := &Server{
		config:  config,
		handler: handler,
		mux:     http.NewServeMux(),
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.withMiddleware(server.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/stats", s.handler.GetStats)
	s.mux.HandleFunc("/v1/search", s.handler.Search)
	s.mux.HandleFunc("/v1/range", s.handler.RangeSearch)
}

// withMiddleware wraps the handler with all middleware. Each wrap becomes
// the new outer layer, so a request passes auth first, then rate limiting,
// then CORS, with logging innermost.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = loggingMiddleware(handler)

	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	handler = middleware.AuthMiddleware(s.config.Auth)(handler)

	return handler
}

// Handler returns the fully middleware-wrapped HTTP handler, useful for
// tests that want to drive the server via httptest without binding a
// real port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the REST API server.
func (s *Server) Start() error {
	log.Printf("Starting REST API server on %s:%d", s.config.Host, s.config.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Println("Shutting down REST API server...")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs all HTTP requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
