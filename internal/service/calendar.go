package service

import (
	"context"
	"math"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/temporal"
	"github.com/templui/fitsync/internal/validation"
)

// calorieTolerance is how far intake may stray from the goal and still count.
const calorieTolerance = 0.10

// maxRangeDays bounds Range.
const maxRangeDays = 366

// CalendarService reconstructs past days against the goal in effect then.
type CalendarService struct {
	checks *CheckService
	water  *WaterService
	meals  *MealService
	goals  *NutritionGoalService
}

func NewCalendarService(checks *CheckService, water *WaterService, meals *MealService, goals *NutritionGoalService) *CalendarService {
	return &CalendarService{checks: checks, water: water, meals: meals, goals: goals}
}

func (c *CalendarService) Day(ctx context.Context, s *model.Session, day time.Time) (*model.DaySummary, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	goal, err := c.goals.AsOf(ctx, s, day)
	if err != nil {
		return nil, err
	}
	meals, totals, err := c.meals.ForDay(ctx, s, day)
	if err != nil {
		return nil, err
	}
	water, err := c.water.ForDay(ctx, s, day)
	if err != nil {
		return nil, err
	}
	checks, err := c.checks.ForDay(ctx, s, day)
	if err != nil {
		return nil, err
	}

	summary := &model.DaySummary{
		Date:   temporal.DayKey(day, s.Loc()),
		Goal:   goal,
		Totals: totals,
		Meals:  len(meals),
		Checks: checks,
	}
	if water != nil {
		summary.WaterML = water.AmountML
	}
	if goal.Calories > 0 {
		summary.CaloriesProgress = totals.Calories / goal.Calories
		summary.CaloriesMet = math.Abs(totals.Calories-goal.Calories) <= goal.Calories*calorieTolerance
	}
	if goal.WaterML > 0 {
		summary.WaterProgress = float64(summary.WaterML) / float64(goal.WaterML)
		summary.WaterMet = summary.WaterML >= goal.WaterML
	}
	return summary, nil
}

// Range summarizes every day from one to another, both inclusive.
func (c *CalendarService) Range(ctx context.Context, s *model.Session, from, to time.Time) ([]*model.DaySummary, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	days := temporal.Days(from, to, s.Loc())
	if len(days) > maxRangeDays {
		return nil, &validation.Error{Field: "range", Message: "spans more than a year"}
	}

	out := make([]*model.DaySummary, 0, len(days))
	for _, key := range days {
		day, err := temporal.ParseDay(key, s.Loc())
		if err != nil {
			return nil, err
		}
		summary, err := c.Day(ctx, s, day)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
