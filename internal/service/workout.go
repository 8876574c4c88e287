package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/validation"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type WorkoutService struct {
	records repository.RecordRepository
	notify  Notifier
}

func NewWorkoutService(records repository.RecordRepository, notify Notifier) *WorkoutService {
	return &WorkoutService{records: records, notify: orNop(notify)}
}

// Create stores a new workout. Counters always start at zero.
func (w *WorkoutService) Create(ctx context.Context, s *model.Session, workout *model.Workout) error {
	if err := requireSession(s); err != nil {
		return err
	}
	workout.Name = strings.TrimSpace(workout.Name)
	if err := validation.ValidateName("name", workout.Name); err != nil {
		return err
	}
	if err := validation.ValidateWeekdays("weekdays", workout.Weekdays); err != nil {
		return err
	}
	workout.TimesDone = 0
	workout.LastDone = ""

	if err := insertEntity(ctx, w.records, s, workout); err != nil {
		return err
	}

	w.notify.Changed(ctx, s)
	return nil
}

func (w *WorkoutService) Update(ctx context.Context, s *model.Session, workoutID string, patch model.WorkoutPatch) (*model.Workout, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validation.ValidateName("name", name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Weekdays != nil {
		if err := validation.ValidateWeekdays("weekdays", *patch.Weekdays); err != nil {
			return nil, err
		}
	}
	// Counters belong to CheckService.
	patch.TimesDone = nil
	patch.LastDone = nil

	updated, err := updateOwned[model.Workout](ctx, w.records, s, workoutID, patch)
	if err != nil {
		return nil, err
	}

	w.notify.Changed(ctx, s)
	return updated, nil
}

// Delete removes the workout together with its daily checks.
func (w *WorkoutService) Delete(ctx context.Context, s *model.Session, workoutID string) error {
	if err := requireSession(s); err != nil {
		return err
	}

	checks, err := listOwned[model.DailyCheck](ctx, w.records, s, repository.FieldEquals("workout_id", workoutID))
	if err != nil {
		return err
	}
	if err := deleteOwned(ctx, w.records, s, model.CollectionWorkouts, workoutID); err != nil {
		return err
	}
	for _, c := range checks {
		if err := w.records.Delete(ctx, model.CollectionDailyChecks, c.ID); err != nil {
			return err
		}
	}

	w.notify.Changed(ctx, s)
	return nil
}

func (w *WorkoutService) ByID(ctx context.Context, s *model.Session, workoutID string) (*model.Workout, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	return getOwned[model.Workout](ctx, w.records, s, workoutID)
}

// List returns the owner's workouts sorted by name.
func (w *WorkoutService) List(ctx context.Context, s *model.Session) ([]*model.Workout, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	workouts, err := listOwned[model.Workout](ctx, w.records, s, nil)
	if err != nil {
		return nil, err
	}
	sortByName(workouts, func(w *model.Workout) string { return w.Name })
	return workouts, nil
}

// ScheduledOn returns the workouts planned for day's weekday. Workouts
// without weekdays are planned every day.
func (w *WorkoutService) ScheduledOn(ctx context.Context, s *model.Session, day time.Time) ([]*model.Workout, error) {
	workouts, err := w.List(ctx, s)
	if err != nil {
		return nil, err
	}

	weekday := int(day.In(s.Loc()).Weekday())
	out := workouts[:0]
	for _, workout := range workouts {
		if len(workout.Weekdays) == 0 || slices.Contains(workout.Weekdays, weekday) {
			out = append(out, workout)
		}
	}
	return out, nil
}

func sortByName[T any](items []T, name func(T) string) {
	c := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b T) int {
		return c.CompareString(name(a), name(b))
	})
}
