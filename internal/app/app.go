package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/repository/sqlite"
	"github.com/Mikhail1201/FAYES/internal/route"
	"github.com/Mikhail1201/FAYES/internal/service/process"
	"github.com/Mikhail1201/FAYES/internal/service/websocket"
)

// App is the controller server: it starts and stops the scanner process over HTTP.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hubService *websocket.HubService
	controller *process.Controller
	httpServer *http.Server
}

// NewApp wires the controller, its event hub and the history store.
func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	hub := websocket.NewHubService(logger)
	controller := process.NewController(cfg.ScannerCommand, hub, logger)

	router := route.SetupRoutes(cfg, route.Dependencies{
		Controller: controller,
		Hub:        hub,
		History:    sqlite.NewOutcomeRepository(db),
		Logger:     logger,
	})

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		hubService: hub,
		controller: controller,
		httpServer: &http.Server{
			Addr:              cfg.ServerAddress(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the HTTP handler of the controller.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run serves until ctx ends, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, listener net.Listener) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hubService.Run(hubCtx)

	serveErr := make(chan error, 1)
	go func() {
		if err := a.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	a.logger.Info("Scanner controller listening on %s", listener.Addr())
	a.logger.Info("Scanner command: %s", a.config.ScannerCommand)

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown requested")
	case err := <-serveErr:
		a.db.Close()
		return fmt.Errorf("server failed: %w", err)
	}

	return a.Shutdown()
}

// Shutdown stops a running scanner, drains HTTP requests and closes the history store.
func (a *App) Shutdown() error {
	if err := a.controller.Stop(); err != nil && !errors.Is(err, process.ErrNotRunning) {
		a.logger.Warning("Failed to stop scanner: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down server: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close history: %w", err))
	}

	a.logger.Info("Scanner controller stopped")
	return errors.Join(errs...)
}
