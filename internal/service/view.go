package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/temporal"
	"golang.org/x/sync/errgroup"
)

// ViewService keeps the current day's read model and republishes it to
// subscribers after every change.
type ViewService struct {
	workouts     *WorkoutService
	checks       *CheckService
	water        *WaterService
	meals        *MealService
	goals        *NutritionGoalService
	measurements *MeasurementService
	exercises    *ExerciseService
	now          func() time.Time

	mu      sync.Mutex
	current *model.Snapshot
	subs    map[int]func(*model.Snapshot)
	nextSub int
}

func NewViewService(
	workouts *WorkoutService,
	checks *CheckService,
	water *WaterService,
	meals *MealService,
	goals *NutritionGoalService,
	measurements *MeasurementService,
	exercises *ExerciseService,
) *ViewService {
	return &ViewService{
		workouts:     workouts,
		checks:       checks,
		water:        water,
		meals:        meals,
		goals:        goals,
		measurements: measurements,
		exercises:    exercises,
		now:          time.Now,
		subs:         make(map[int]func(*model.Snapshot)),
	}
}

// Refresh re-runs every query of the day view and publishes the result.
func (v *ViewService) Refresh(ctx context.Context, s *model.Session) (*model.Snapshot, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	today := v.now()
	snap := &model.Snapshot{
		UserID:      s.UserID,
		Date:        temporal.DayKey(today, s.Loc()),
		RefreshedAt: today,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Workouts, err = v.workouts.ScheduledOn(gctx, s, today)
		return err
	})
	g.Go(func() (err error) {
		snap.Checks, err = v.checks.ForDay(gctx, s, today)
		return err
	})
	g.Go(func() (err error) {
		snap.Water, err = v.water.ForDay(gctx, s, today)
		return err
	})
	g.Go(func() (err error) {
		snap.Meals, snap.Totals, err = v.meals.ForDay(gctx, s, today)
		return err
	})
	g.Go(func() (err error) {
		snap.Goal, err = v.goals.AsOf(gctx, s, today)
		return err
	})
	g.Go(func() (err error) {
		snap.LatestWeight, err = v.measurements.Latest(gctx, s, model.MeasurementWeight)
		return err
	})
	g.Go(func() (err error) {
		snap.CustomExercises, err = v.exercises.Custom(gctx, s)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v.publish(snap)
	return snap, nil
}

// Changed refreshes the view after a mutation. Failures are logged; the
// previous snapshot stays current.
func (v *ViewService) Changed(ctx context.Context, s *model.Session) {
	if _, err := v.Refresh(ctx, s); err != nil {
		slog.Warn("failed to refresh view", "user_id", s.UserID, "error", err)
	}
}

// Subscribe registers fn for every published snapshot. The returned
// function unsubscribes.
func (v *ViewService) Subscribe(fn func(*model.Snapshot)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}

func (v *ViewService) Current() *model.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Reset drops the current snapshot and tells subscribers with nil.
func (v *ViewService) Reset() {
	v.publish(nil)
}

func (v *ViewService) publish(snap *model.Snapshot) {
	v.mu.Lock()
	v.current = snap
	subs := make([]func(*model.Snapshot), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
