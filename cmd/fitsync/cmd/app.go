package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/templui/fitsync/internal/app"
	"github.com/templui/fitsync/internal/config"
	"github.com/templui/fitsync/internal/logger"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/service"
)

// withApp loads the config, starts the app and runs fn. The app is closed
// and buffered log events are flushed afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}

// withSession is withApp for commands that need a signed-in owner.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, s *model.Session) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s, err := a.Session(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, a, s)
	})
}

// PrintError writes the user-facing message for err.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", service.Message(err))
}
