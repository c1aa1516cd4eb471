package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"crosswalk/api"
	"crosswalk/config"
	"crosswalk/dispatch"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the graceful HTTP drain
const shutdownTimeout = 10 * time.Second

// App represents the crosswalk server with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Storage
	Storage *StorageComponents

	// Services
	Dispatcher *dispatch.Dispatcher
	APIServer  *api.API

	// Lifecycle
	serviceWg    *sync.WaitGroup
	serverErrCh  chan error
	stopMetrics  context.CancelFunc
	metricsDone  <-chan struct{}
	shutdownOnce sync.Once
}

// NewApp loads configuration and the logger, then initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := InitConfig()
	if err != nil {
		return nil, err
	}
	logger, sugar, err := InitLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	LogConfig(cfg, sugar)
	return NewAppWithConfig(ctx, cfg, logger)
}

// NewAppWithConfig initializes all components from an already loaded config.
func NewAppWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sugar := logger.Sugar()
	app := &App{
		Config:      cfg,
		Logger:      logger,
		Sugar:       sugar,
		serviceWg:   &sync.WaitGroup{},
		serverErrCh: make(chan error, 1),
	}

	sugar.Info("Crosswalk starting...")

	components, err := InitStorage(cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Storage = components

	dispatcher, err := NewDispatcher(components, sugar)
	if err != nil {
		_ = components.Close()
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	app.Dispatcher = dispatcher

	app.APIServer = api.NewAPI(dispatcher, components.SQLite, cfg, sugar)
	return app, nil
}

// Start starts pool metrics collection and the API server.
func (a *App) Start(ctx context.Context) error {
	if err := a.Storage.SQLite.HealthCheck(ctx); err != nil {
		return fmt.Errorf("control store is not healthy: %w", err)
	}

	if interval := a.Config.Storage.MetricsInterval; interval > 0 {
		metricsCtx, cancel := context.WithCancel(context.Background())
		a.stopMetrics = cancel
		a.metricsDone = a.Storage.SQLite.StartMetricsCollection(metricsCtx, interval)
	}

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		if err := a.APIServer.Start(); err != nil {
			a.Sugar.Errorw("API server error", "error", err)
			a.serverErrCh <- err
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the API
// server fails. It returns the server error, if any.
func (a *App) WaitForShutdown() error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
		return nil
	case err := <-a.serverErrCh:
		return err
	}
}

// Shutdown gracefully shuts down all components. Safe to call more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.Sugar.Info("Shutting down...")

		// Phase 1 - Drain in-flight requests
		if a.APIServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := a.APIServer.Stop(ctx); err != nil {
				a.Sugar.Warnw("API server shutdown incomplete", "error", err)
			}
			cancel()
		}
		a.serviceWg.Wait()

		// Phase 2 - Stop background collectors
		if a.stopMetrics != nil {
			a.stopMetrics()
			<-a.metricsDone
		}

		// Phase 3 - Close the store
		if a.Storage != nil {
			if err := a.Storage.Close(); err != nil {
				a.Sugar.Errorw("Failed to close control store", "error", err)
			}
		}

		a.Sugar.Info("Shutdown complete")
		_ = a.Logger.Sync()
	})
}
