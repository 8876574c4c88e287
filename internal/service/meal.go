package service

import (
	"context"
	"strings"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/temporal"
	"github.com/templui/fitsync/internal/validation"
)

var mealTypes = []string{model.MealBreakfast, model.MealLunch, model.MealDinner, model.MealSnack}

type MealService struct {
	records repository.RecordRepository
	notify  Notifier
	now     func() time.Time
}

func NewMealService(records repository.RecordRepository, notify Notifier) *MealService {
	return &MealService{records: records, notify: orNop(notify), now: time.Now}
}

// Add logs a meal. An empty date means today.
func (m *MealService) Add(ctx context.Context, s *model.Session, meal *model.Meal) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if meal.Date == "" {
		meal.Date = temporal.DayKey(m.now(), s.Loc())
	}
	meal.Name = strings.TrimSpace(meal.Name)
	if err := validateMeal(meal); err != nil {
		return err
	}

	if err := insertEntity(ctx, m.records, s, meal); err != nil {
		return err
	}

	m.notify.Changed(ctx, s)
	return nil
}

func (m *MealService) Update(ctx context.Context, s *model.Session, mealID string, patch model.MealPatch) (*model.Meal, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	current, err := getOwned[model.Meal](ctx, m.records, s, mealID)
	if err != nil {
		return nil, err
	}
	preview := *current
	if patch.Type != nil {
		preview.Type = *patch.Type
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		preview.Name = name
	}
	if patch.Calories != nil {
		preview.Calories = *patch.Calories
	}
	if patch.ProteinG != nil {
		preview.ProteinG = *patch.ProteinG
	}
	if patch.CarbsG != nil {
		preview.CarbsG = *patch.CarbsG
	}
	if patch.FatG != nil {
		preview.FatG = *patch.FatG
	}
	if err := validateMeal(&preview); err != nil {
		return nil, err
	}

	updated, err := updateOwned[model.Meal](ctx, m.records, s, mealID, patch)
	if err != nil {
		return nil, err
	}

	m.notify.Changed(ctx, s)
	return updated, nil
}

func (m *MealService) Delete(ctx context.Context, s *model.Session, mealID string) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if err := deleteOwned(ctx, m.records, s, model.CollectionMeals, mealID); err != nil {
		return err
	}
	m.notify.Changed(ctx, s)
	return nil
}

// ForDay returns the day's meals and their macro totals.
func (m *MealService) ForDay(ctx context.Context, s *model.Session, day time.Time) ([]*model.Meal, model.Macros, error) {
	if err := requireSession(s); err != nil {
		return nil, model.Macros{}, err
	}

	meals, err := listOwned[model.Meal](ctx, m.records, s,
		repository.FieldEquals("date", temporal.DayKey(day, s.Loc())))
	if err != nil {
		return nil, model.Macros{}, err
	}

	var totals model.Macros
	for _, meal := range meals {
		totals = totals.Add(meal)
	}
	return meals, totals, nil
}

func validateMeal(meal *model.Meal) error {
	if err := validation.ValidateDay("date", meal.Date); err != nil {
		return err
	}
	if err := validation.ValidateOneOf("type", meal.Type, mealTypes); err != nil {
		return err
	}
	if err := validation.ValidateName("name", meal.Name); err != nil {
		return err
	}
	for field, v := range map[string]float64{
		"calories":  meal.Calories,
		"protein_g": meal.ProteinG,
		"carbs_g":   meal.CarbsG,
		"fat_g":     meal.FatG,
	} {
		if err := validation.ValidateNonNegative(field, v); err != nil {
			return err
		}
	}
	return nil
}
