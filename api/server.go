package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/taskflow-go/taskflow/events"
	"github.com/taskflow-go/taskflow/logging"
	"github.com/taskflow-go/taskflow/ratelimit"
	"github.com/taskflow-go/taskflow/store"
)

// DefaultVersion is reported by the health endpoint.
const DefaultVersion = "1.0.0"

// Server is the HTTP front end over a task store.
type Server struct {
	store   store.Store
	log     *logging.Logger
	emitter events.Emitter
	limiter ratelimit.Limiter
	apiKey  string
	version string
	mux     *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAPIKey enables shared-secret auth on the X-API-Key header.
// An empty key leaves auth disabled.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithLimiter enables per-client rate limiting.
func WithLimiter(l ratelimit.Limiter) ServerOption {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithLogger sets the request logger.
func WithLogger(log *logging.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithEmitter publishes task lifecycle events for API mutations.
func WithEmitter(e events.Emitter) ServerOption {
	return func(s *Server) {
		s.emitter = e
	}
}

// WithVersion overrides the version string in health responses.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates the API server over the given store.
func NewServer(st store.Store, opts ...ServerOption) *Server {
	s := &Server{
		store:   st,
		log:     logging.New().WithComponent("api"),
		emitter: events.Nop{},
		version: DefaultVersion,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler with auth and rate limiting
// applied ahead of routing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.guard(s.mux).ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("GET /api/v1/tasks", s.handleTaskList)
	s.mux.HandleFunc("GET /api/v1/tasks/stats/summary", s.handleStats)
	s.mux.HandleFunc("GET /api/v1/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PUT /api/v1/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.handleTaskDelete)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
