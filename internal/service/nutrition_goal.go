package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/temporal"
	"github.com/templui/fitsync/internal/validation"
)

// GoalFallback supplies a goal for days before the owner set any.
type GoalFallback interface {
	DefaultGoal(ctx context.Context, s *model.Session, day time.Time) model.NutritionGoal
}

// StaticGoals is used when nothing is known about the owner.
var StaticGoals = model.NutritionGoal{
	Calories: 2000,
	ProteinG: 100,
	CarbsG:   250,
	FatG:     65,
	WaterML:  2000,
}

// WeightBasedGoals derives a goal from the latest body weight measured on or
// before the day, falling back to StaticGoals without one.
type WeightBasedGoals struct {
	records repository.RecordRepository
}

func NewWeightBasedGoals(records repository.RecordRepository) *WeightBasedGoals {
	return &WeightBasedGoals{records: records}
}

func (g *WeightBasedGoals) DefaultGoal(ctx context.Context, s *model.Session, day time.Time) model.NutritionGoal {
	weights, err := listOwned[model.Measurement](ctx, g.records, s, repository.FieldEquals("kind", model.MeasurementWeight))
	if err != nil {
		slog.Warn("failed to load weight for default goal", "user_id", s.UserID, "error", err)
		return StaticGoals
	}
	latest, ok := temporal.ResolveAsOf(weights, day, s.Loc())
	if !ok {
		return StaticGoals
	}
	return GoalForWeight(latest.Kilograms())
}

// GoalForWeight is a maintenance estimate: 30 kcal and 35 ml water per kg,
// 1.6 g protein per kg, a quarter of calories from fat, the rest carbs.
func GoalForWeight(kg float64) model.NutritionGoal {
	calories := math.Round(kg * 30)
	protein := math.Round(kg * 1.6)
	fat := math.Round(calories * 0.25 / 9)
	carbs := math.Max(0, math.Round((calories-protein*4-fat*9)/4))
	return model.NutritionGoal{
		Calories: calories,
		ProteinG: protein,
		CarbsG:   carbs,
		FatG:     fat,
		WaterML:  int(math.Round(kg*35/50) * 50),
	}
}

type NutritionGoalService struct {
	records  repository.RecordRepository
	fallback GoalFallback
	notify   Notifier
	now      func() time.Time
}

func NewNutritionGoalService(records repository.RecordRepository, fallback GoalFallback, notify Notifier) *NutritionGoalService {
	if fallback == nil {
		fallback = NewWeightBasedGoals(records)
	}
	return &NutritionGoalService{records: records, fallback: fallback, notify: orNop(notify), now: time.Now}
}

// Update stores a new goal version: the current goal with the patch applied.
// Goals are never edited in place.
func (g *NutritionGoalService) Update(ctx context.Context, s *model.Session, patch model.NutritionGoalPatch) (*model.NutritionGoal, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	current, err := g.Current(ctx, s)
	if err != nil {
		return nil, err
	}

	next := patch.Apply(current)
	next.Meta = model.Meta{}
	next.Date = g.now().UTC()
	if err := validateGoal(next); err != nil {
		return nil, err
	}

	if err := insertEntity(ctx, g.records, s, &next); err != nil {
		return nil, err
	}

	g.notify.Changed(ctx, s)
	return &next, nil
}

func (g *NutritionGoalService) Current(ctx context.Context, s *model.Session) (model.NutritionGoal, error) {
	return g.AsOf(ctx, s, g.now())
}

// AsOf returns the goal in effect on day. Days before the first goal get
// the fallback; that is not an error.
func (g *NutritionGoalService) AsOf(ctx context.Context, s *model.Session, day time.Time) (model.NutritionGoal, error) {
	if err := requireSession(s); err != nil {
		return model.NutritionGoal{}, err
	}

	history, err := listOwned[model.NutritionGoal](ctx, g.records, s, nil)
	if err != nil {
		return model.NutritionGoal{}, err
	}

	goal, ok := temporal.ResolveAsOf(history, day, s.Loc())
	if !ok {
		return g.fallback.DefaultGoal(ctx, s, day), nil
	}
	return *goal, nil
}

// History lists every goal version, oldest first.
func (g *NutritionGoalService) History(ctx context.Context, s *model.Session) ([]*model.NutritionGoal, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	history, err := listOwned[model.NutritionGoal](ctx, g.records, s, nil)
	if err != nil {
		return nil, err
	}
	temporal.Sort(history)
	return history, nil
}

func validateGoal(goal model.NutritionGoal) error {
	if err := validation.ValidatePositive("calories", goal.Calories); err != nil {
		return err
	}
	for field, v := range map[string]float64{
		"protein_g": goal.ProteinG,
		"carbs_g":   goal.CarbsG,
		"fat_g":     goal.FatG,
		"water_ml":  float64(goal.WaterML),
	} {
		if err := validation.ValidateNonNegative(field, v); err != nil {
			return err
		}
	}
	return nil
}
