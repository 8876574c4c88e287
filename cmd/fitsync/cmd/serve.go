package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/fitsync/internal/app"
	"github.com/templui/fitsync/internal/routes"
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background sync loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runServe)
		},
	}
}

func runServe(ctx context.Context, a *app.App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local control surface: health, metrics, status and manual sync.
	var controlSrv *http.Server
	if a.Cfg.MetricsEnabled() {
		controlSrv = &http.Server{
			Addr:              a.Cfg.MetricsAddr,
			Handler:           routes.SetupRoutes(a),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("control server listening", "addr", a.Cfg.MetricsAddr)
			if err := controlSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("control server error", "error", err)
			}
		}()
	}

	if s, err := a.Session(ctx); err == nil {
		if _, err := a.ViewService.Refresh(ctx, s); err != nil {
			slog.Warn("failed to build view", "error", err)
		}
	} else {
		slog.Info("no active session, waiting for sign-in")
	}

	slog.Info("sync loop starting", "remote", a.Cfg.SyncRemote, "interval", a.Cfg.SyncPushInterval, "threshold", a.Cfg.SyncPushThreshold)
	go a.Engine.Run(ctx, a.Session)

	<-ctx.Done()
	slog.Info("shutting down")
	a.Engine.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Last chance to get pending changes out before the process exits.
	if s, err := a.Session(shutdownCtx); err == nil {
		if _, err := a.Engine.Push(shutdownCtx, s, true); err != nil {
			slog.Warn("final push failed", "error", err)
		}
	}

	if controlSrv != nil {
		if err := controlSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("control server shutdown error", "error", err)
		}
	}
	return nil
}
