// Package server wires the upload broker together: it builds the storage
// provider, the session orchestrator and the metrics registry, then runs the
// REST and gRPC servers until the process is told to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/uploadbroker/internal/logging"
	"github.com/dmitrijs2005/uploadbroker/internal/server/config"
	"github.com/dmitrijs2005/uploadbroker/internal/server/metrics"
	"github.com/dmitrijs2005/uploadbroker/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/uploadbroker/internal/server/rest"
	"github.com/dmitrijs2005/uploadbroker/internal/server/services"
	"github.com/dmitrijs2005/uploadbroker/internal/server/storage"

	gs "github.com/dmitrijs2005/uploadbroker/internal/server/grpc"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	metrics        *metrics.Prometheus
	sessionService *services.SessionService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.IsDevelopment())
	ctx := context.Background()

	provider, err := storage.NewS3Provider(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if !provider.IsConfigured() {
		logger.Warn(ctx, "storage provider is not configured; upload operations will be refused")
	}

	m := metrics.NewPrometheus()
	ss := services.NewSessionService(sessions.NewMemoryRepository(), provider, c, logger, m)

	return &App{config: c, logger: logger, metrics: m, sessionService: ss}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessionService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := rest.NewServer(app.config, app.sessionService, app.logger, app.metrics, app.metrics.Handler())

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mode", app.config.Mode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
