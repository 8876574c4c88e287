package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/fitsync/internal/app"
	"github.com/templui/fitsync/internal/model"
)

func PushCmd() *cobra.Command {
	var ifDue bool
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push pending changes to the remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				result, err := a.Engine.Push(ctx, s, !ifDue)
				if err != nil {
					return err
				}
				if result.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "Push skipped: %s\n", result.Reason)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d changes\n", result.Pushed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ifDue, "if-due", false, "only push when the push policy says so")
	return cmd
}

func PullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace local data with the remote dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				if err := a.Engine.Pull(ctx, s); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Pulled remote data")
				return nil
			})
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
