package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
	"github.com/yanqian/sales-assistant/internal/infra/config"
	apperrors "github.com/yanqian/sales-assistant/pkg/errors"
)

// App encapsulates the HTTP server and the refresh scheduler lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	svc    assistant.Service
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, svc assistant.Service) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, svc: svc}
}

// Run starts the server and the scheduled refresh loop, blocking until
// shutdown.
func (a *App) Run(ctx context.Context) error {
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go a.refreshLoop(loopCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// refreshLoop refreshes the corpus shortly after startup and then on
// every interval. Overlapping runs are skipped by the service itself.
func (a *App) refreshLoop(ctx context.Context) {
	initial := a.cfg.Corpus.InitialDelay
	if initial <= 0 {
		initial = 10 * time.Second
	}
	select {
	case <-time.After(initial):
		a.refresh(ctx)
	case <-ctx.Done():
		return
	}

	interval := a.cfg.Corpus.RefreshInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) refresh(ctx context.Context) {
	result, err := a.svc.Refresh(ctx)
	if err != nil {
		if apperrors.IsCode(err, "refresh_in_progress") {
			a.logger.Warn("scheduled refresh skipped, previous run still active")
			return
		}
		a.logger.Error("scheduled refresh failed", "error", err)
		return
	}
	a.logger.Info("scheduled refresh completed", "pairs", result.Pairs, "source", result.Source)
}
