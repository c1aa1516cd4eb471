// Package api exposes the tool dispatcher over HTTP.
//
// Routes:
//
//	GET  /health                  store health
//	GET  /api/v1/tools            tool definitions with their argument schemas
//	POST /api/v1/tools/{name}     call a tool; the body is the argument object
//	GET  /metrics                 Prometheus metrics (when enabled)
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"crosswalk/config"
	"crosswalk/dispatch"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ToolDispatcher routes tool calls
type ToolDispatcher interface {
	Call(ctx context.Context, toolName string, rawArgs json.RawMessage) (*dispatch.Response, error)
	Tools() []dispatch.Tool
}

// HealthChecker reports store health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API holds the API server
type API struct {
	router     *mux.Router
	server     *http.Server
	dispatcher ToolDispatcher
	health     HealthChecker
	config     *config.Config
	logger     *zap.SugaredLogger
}

// NewAPI creates a new API server. Panics on nil dependencies.
func NewAPI(dispatcher ToolDispatcher, health HealthChecker, cfg *config.Config, logger *zap.SugaredLogger) *API {
	if dispatcher == nil {
		panic("dispatcher is required")
	}
	if health == nil {
		panic("health checker is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	api := &API{
		router:     mux.NewRouter(),
		dispatcher: dispatcher,
		health:     health,
		config:     cfg,
		logger:     logger,
	}
	api.setupRoutes()
	api.server = &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      api.router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.errorRecoveryMiddleware)
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.metricsMiddleware)
	// cors treats an empty origin list as "*"
	if origins := a.config.API.AllowedOrigins; len(origins) > 0 {
		a.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/api/v1/tools", a.listTools).Methods("GET")
	a.router.HandleFunc("/api/v1/tools/{name}", a.callTool).Methods("POST", "OPTIONS")
	if a.config.API.MetricsEnabled {
		a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
}

// Handler returns the routed handler
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server and blocks until it stops.
// http.ErrServerClosed after Stop is not an error.
func (a *API) Start() error {
	a.logger.Infow("API server listening", "addr", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
