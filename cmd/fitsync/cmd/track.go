package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/fitsync/internal/app"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/temporal"
)

// dayFlag resolves --date against the session's zone, defaulting to today.
func dayFlag(s *model.Session, value string) (time.Time, error) {
	if value == "" {
		return time.Now().In(s.Loc()), nil
	}
	return temporal.ParseDay(value, s.Loc())
}

func WaterCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "water <ml>",
		Short: "Add water to a day's total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ml int
			if _, err := fmt.Sscan(args[0], &ml); err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				day, err := dayFlag(s, date)
				if err != nil {
					return err
				}
				intake, err := a.WaterService.AddAmountOn(ctx, s, day, ml)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d ml\n", intake.Date, intake.AmountML)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	return cmd
}

func CheckCmd() *cobra.Command {
	var date string
	var undo bool
	cmd := &cobra.Command{
		Use:   "check <workout-id>",
		Short: "Mark a workout as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				day, err := dayFlag(s, date)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if undo {
					if err := a.CheckService.Undo(ctx, s, args[0], day); err != nil {
						return err
					}
					fmt.Fprintln(out, "Check removed")
					return nil
				}
				check, created, err := a.CheckService.Complete(ctx, s, args[0], day)
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(out, "Already done on %s\n", check.Date)
					return nil
				}
				fmt.Fprintf(out, "Done on %s\n", check.Date)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&undo, "undo", false, "remove the check instead")
	return cmd
}

func MealCmd() *cobra.Command {
	meal := &model.Meal{}
	var date string
	cmd := &cobra.Command{
		Use:   "meal <name>",
		Short: "Log a meal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				if date != "" {
					day, err := dayFlag(s, date)
					if err != nil {
						return err
					}
					meal.Date = temporal.DayKey(day, s.Loc())
				}
				meal.Name = args[0]
				if err := a.MealService.Add(ctx, s, meal); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %s (%.0f kcal) on %s\n", meal.Name, meal.Calories, meal.Date)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&meal.Type, "type", model.MealSnack, "breakfast, lunch, dinner or snack")
	cmd.Flags().Float64Var(&meal.Calories, "kcal", 0, "calories")
	cmd.Flags().Float64Var(&meal.ProteinG, "protein", 0, "protein in grams")
	cmd.Flags().Float64Var(&meal.CarbsG, "carbs", 0, "carbs in grams")
	cmd.Flags().Float64Var(&meal.FatG, "fat", 0, "fat in grams")
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	return cmd
}

func WeightCmd() *cobra.Command {
	var unit string
	cmd := &cobra.Command{
		Use:   "weight <value>",
		Short: "Record body weight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value float64
			if _, err := fmt.Sscan(args[0], &value); err != nil {
				return fmt.Errorf("invalid weight %q", args[0])
			}
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				m, err := a.MeasurementService.Add(ctx, s, model.MeasurementWeight, value, unit, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %.1f %s\n", m.Value, m.Unit)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "kg", "kg or lb")
	return cmd
}

func TodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's workouts, water and nutrition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
				snap, err := a.ViewService.Refresh(ctx, s)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n\n", snap.Date)
				fmt.Fprintln(out, "Workouts:")
				if len(snap.Workouts) == 0 {
					fmt.Fprintln(out, "  none scheduled")
				}
				for _, w := range snap.Workouts {
					mark := " "
					if snap.Done(w.ID) {
						mark = "x"
					}
					fmt.Fprintf(out, "  [%s] %s (%s)\n", mark, w.Name, w.ID)
				}
				fmt.Fprintf(out, "\nWater:    %d / %d ml\n", snap.WaterML(), snap.Goal.WaterML)
				fmt.Fprintf(out, "Calories: %.0f / %.0f kcal\n", snap.Totals.Calories, snap.Goal.Calories)
				fmt.Fprintf(out, "Protein:  %.0f / %.0f g\n", snap.Totals.ProteinG, snap.Goal.ProteinG)
				if snap.LatestWeight != nil {
					fmt.Fprintf(out, "Weight:   %.1f %s\n", snap.LatestWeight.Value, snap.LatestWeight.Unit)
				}
				return nil
			})
		},
	}
}
