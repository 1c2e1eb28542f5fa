// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/flat-hunter/internal/logging"
	"github.com/flat-hunter/internal/storage"
)

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	exposes    *storage.ExposeRepository
	users      *storage.UserRepository
	executions *storage.ExecutionRepository
	config     *ServerConfig
	log        *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	exposes *storage.ExposeRepository,
	users *storage.UserRepository,
	executions *storage.ExecutionRepository,
	log *logging.Logger,
) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		exposes:    exposes,
		users:      users,
		executions: executions,
		config:     config,
		log:        log,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware(s.log))
	s.router.Use(RecoveryMiddleware(s.log))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Expose endpoints
	api.HandleFunc("/exposes/recent", s.handleRecentExposes).Methods("GET")
	api.HandleFunc("/exposes", s.handleExposesSince).Methods("GET")
	api.HandleFunc("/exposes/{source}/{id}", s.handleGetExpose).Methods("GET")

	// User settings endpoints
	api.HandleFunc("/users/{id}/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/users/{id}/settings", s.handlePutSettings).Methods("PUT")

	// Hunt status endpoint
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "flat-hunter",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
