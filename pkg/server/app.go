package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CryptoVision/internal/usecase"
	"CryptoVision/pkg/config"
	xhttp "CryptoVision/pkg/http"
	applogger "CryptoVision/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	registry   *usecase.Registry
	httpServer *xhttp.Server
}

// New creates a new App. Infrastructure clients are closed by the injector's
// cleanup, after Run returns.
func New(cfg *config.Config, l *applogger.Logger, registry *usecase.Registry, httpServer *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		registry:   registry,
		httpServer: httpServer,
	}
}

// Registry returns the trained models served by the app.
func (a *App) Registry() *usecase.Registry { return a.registry }

// Run starts the HTTP server and blocks until interrupted or the server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	errCh := a.httpServer.Start()
	a.l.Info("prediction service started",
		applogger.String("env", a.cfg.Environment),
		applogger.Strings("assets", a.registry.Assets()),
		applogger.Int("port", a.cfg.Server.Port),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			runErr = err
		}
	}

	a.shutdown()
	return runErr
}

// shutdown drains in-flight requests.
func (a *App) shutdown() {
	a.l.Info("shutting down...")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
}
