package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/fitsync/cmd/fitsync/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fitsync",
		Short:         "Offline-first fitness tracker with background sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.SignInCmd())
	rootCmd.AddCommand(cmd.SignOutCmd())
	rootCmd.AddCommand(cmd.StatusCmd())
	rootCmd.AddCommand(cmd.PushCmd())
	rootCmd.AddCommand(cmd.PullCmd())
	rootCmd.AddCommand(cmd.TodayCmd())
	rootCmd.AddCommand(cmd.WaterCmd())
	rootCmd.AddCommand(cmd.CheckCmd())
	rootCmd.AddCommand(cmd.MealCmd())
	rootCmd.AddCommand(cmd.WeightCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		cmd.PrintError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
