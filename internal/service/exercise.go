package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/temporal"
	"github.com/templui/fitsync/internal/validation"
	"golang.org/x/text/cases"
)

// DefaultExerciseConfig applies to exercises that were never edited.
var DefaultExerciseConfig = model.ExerciseConfig{
	Sets:        3,
	Reps:        10,
	RestSeconds: 60,
}

type ExerciseService struct {
	records repository.RecordRepository
	notify  Notifier
	now     func() time.Time
	fold    cases.Caser

	mu sync.Mutex
}

func NewExerciseService(records repository.RecordRepository, notify Notifier) *ExerciseService {
	return &ExerciseService{
		records: records,
		notify:  orNop(notify),
		now:     time.Now,
		fold:    cases.Fold(),
	}
}

// RecordEdit stores a new configuration version for the exercise: the
// current configuration with the patch applied.
func (e *ExerciseService) RecordEdit(ctx context.Context, s *model.Session, exerciseID string, patch model.ExerciseConfigPatch) (*model.ExerciseEdit, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	if strings.TrimSpace(exerciseID) == "" {
		return nil, &validation.Error{Field: "exercise_id", Message: "is required"}
	}

	current, err := e.ConfigAsOf(ctx, s, exerciseID, e.now())
	if err != nil {
		return nil, err
	}
	cfg := patch.Apply(current)
	if err := validateExerciseConfig(cfg); err != nil {
		return nil, err
	}

	edit := &model.ExerciseEdit{
		ExerciseID:     exerciseID,
		Date:           e.now().UTC(),
		ExerciseConfig: cfg,
	}
	if err := insertEntity(ctx, e.records, s, edit); err != nil {
		return nil, err
	}

	e.notify.Changed(ctx, s)
	return edit, nil
}

// ConfigAsOf resolves the exercise's configuration in effect on day.
func (e *ExerciseService) ConfigAsOf(ctx context.Context, s *model.Session, exerciseID string, day time.Time) (model.ExerciseConfig, error) {
	if err := requireSession(s); err != nil {
		return model.ExerciseConfig{}, err
	}

	edits, err := e.edits(ctx, s, exerciseID)
	if err != nil {
		return model.ExerciseConfig{}, err
	}

	edit, ok := temporal.ResolveAsOf(edits, day, s.Loc())
	if !ok {
		return DefaultExerciseConfig, nil
	}
	return edit.ExerciseConfig, nil
}

// Edits lists the exercise's configuration history, oldest first.
func (e *ExerciseService) Edits(ctx context.Context, s *model.Session, exerciseID string) ([]*model.ExerciseEdit, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	edits, err := e.edits(ctx, s, exerciseID)
	if err != nil {
		return nil, err
	}
	temporal.Sort(edits)
	return edits, nil
}

func (e *ExerciseService) edits(ctx context.Context, s *model.Session, exerciseID string) ([]*model.ExerciseEdit, error) {
	return listOwned[model.ExerciseEdit](ctx, e.records, s, repository.FieldEquals("exercise_id", exerciseID))
}

// CreateCustom adds a user-defined exercise. Names are unique per owner,
// compared case-insensitively.
func (e *ExerciseService) CreateCustom(ctx context.Context, s *model.Session, exercise *model.CustomExercise) error {
	if err := requireSession(s); err != nil {
		return err
	}
	exercise.Name = strings.TrimSpace(exercise.Name)
	if err := validation.ValidateName("name", exercise.Name); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureUniqueName(ctx, s, exercise.Name, ""); err != nil {
		return err
	}
	if err := insertEntity(ctx, e.records, s, exercise); err != nil {
		return err
	}

	e.notify.Changed(ctx, s)
	return nil
}

func (e *ExerciseService) UpdateCustom(ctx context.Context, s *model.Session, exerciseID string, patch model.CustomExercisePatch) (*model.CustomExercise, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validation.ValidateName("name", name); err != nil {
			return nil, err
		}
		if err := e.ensureUniqueName(ctx, s, name, exerciseID); err != nil {
			return nil, err
		}
		patch.Name = &name
	}

	updated, err := updateOwned[model.CustomExercise](ctx, e.records, s, exerciseID, patch)
	if err != nil {
		return nil, err
	}

	e.notify.Changed(ctx, s)
	return updated, nil
}

// DeleteCustom removes a custom exercise and its configuration history.
func (e *ExerciseService) DeleteCustom(ctx context.Context, s *model.Session, exerciseID string) error {
	if err := requireSession(s); err != nil {
		return err
	}

	edits, err := e.edits(ctx, s, exerciseID)
	if err != nil {
		return err
	}
	for _, edit := range edits {
		if err := e.records.Delete(ctx, model.CollectionExerciseEdits, edit.ID); err != nil {
			return err
		}
	}
	if err := deleteOwned(ctx, e.records, s, model.CollectionCustomExercises, exerciseID); err != nil {
		return err
	}

	e.notify.Changed(ctx, s)
	return nil
}

// Custom lists the owner's custom exercises sorted by name.
func (e *ExerciseService) Custom(ctx context.Context, s *model.Session) ([]*model.CustomExercise, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	exercises, err := listOwned[model.CustomExercise](ctx, e.records, s, nil)
	if err != nil {
		return nil, err
	}
	sortByName(exercises, func(c *model.CustomExercise) string { return c.Name })
	return exercises, nil
}

func (e *ExerciseService) ensureUniqueName(ctx context.Context, s *model.Session, name, exceptID string) error {
	existing, err := listOwned[model.CustomExercise](ctx, e.records, s, nil)
	if err != nil {
		return err
	}
	folded := e.fold.String(name)
	for _, c := range existing {
		if c.ID != exceptID && e.fold.String(c.Name) == folded {
			return ErrNameTaken
		}
	}
	return nil
}

func validateExerciseConfig(cfg model.ExerciseConfig) error {
	for field, v := range map[string]float64{
		"sets":         float64(cfg.Sets),
		"reps":         float64(cfg.Reps),
		"weight_kg":    cfg.WeightKg,
		"rest_seconds": float64(cfg.RestSeconds),
	} {
		if err := validation.ValidateNonNegative(field, v); err != nil {
			return err
		}
	}
	return nil
}
