package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/templui/fitsync/internal/app"
	"github.com/templui/fitsync/internal/model"
)

func SignInCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with an access token and pull your data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("FITSYNC_TOKEN")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.SessionService.SignIn(ctx, strings.TrimSpace(token))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", s.UserID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token (default $FITSYNC_TOKEN)")
	return cmd
}

func SignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Push pending changes and forget the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				if err := a.SessionService.SignOut(ctx, s); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, pending changes and sync configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				cfg := a.Cfg.Sanitized()
				fmt.Fprintf(out, "Remote:     %s %s\n", cfg.SyncRemote, cfg.SyncURL)
				fmt.Fprintf(out, "Policy:     every %s or %d changes\n", cfg.SyncPushInterval, cfg.SyncPushThreshold)

				s, err := a.Session(ctx)
				if err != nil {
					fmt.Fprintln(out, "Session:    signed out")
					return nil
				}
				fmt.Fprintf(out, "Session:    %s\n", s.UserID)

				pending, err := a.Changes.CountPending(ctx, s.UserID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pending:    %d\n", pending)

				state, err := a.SyncStates.Get(ctx, s.UserID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Last push:  %s\n", formatTime(state.LastPushAt))
				fmt.Fprintf(out, "Last pull:  %s\n", formatTime(state.LastPullAt))
				if state.LastPushError != "" {
					fmt.Fprintf(out, "Last error: %s\n", state.LastPushError)
				}
				return nil
			})
		},
	}
}
