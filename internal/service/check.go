package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/temporal"
)

type CheckService struct {
	records repository.RecordRepository
	notify  Notifier
	now     func() time.Time

	mu sync.Mutex
}

func NewCheckService(records repository.RecordRepository, notify Notifier) *CheckService {
	return &CheckService{records: records, notify: orNop(notify), now: time.Now}
}

// Complete marks the workout done on day. Completing twice is a no-op and
// reports created=false. The check is stored first and the workout's
// counters second; if the second write fails the check stays and Recount
// repairs the counters.
func (c *CheckService) Complete(ctx context.Context, s *model.Session, workoutID string, day time.Time) (check *model.DailyCheck, created bool, err error) {
	if err := requireSession(s); err != nil {
		return nil, false, err
	}
	if _, err := getOwned[model.Workout](ctx, c.records, s, workoutID); err != nil {
		return nil, false, fmt.Errorf("complete workout %s: %w", workoutID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := temporal.DayKey(day, s.Loc())
	existing, err := c.find(ctx, s, workoutID, key)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	check = &model.DailyCheck{
		Date:        key,
		WorkoutID:   workoutID,
		CompletedAt: c.now().UTC().Format(time.RFC3339),
	}
	if err := insertEntity(ctx, c.records, s, check); err != nil {
		return nil, false, err
	}
	// The check exists from here on; tell listeners even if counters fail.
	defer c.notify.Changed(ctx, s)

	workout, err := getOwned[model.Workout](ctx, c.records, s, workoutID)
	if err != nil {
		return check, true, fmt.Errorf("update workout counters: %w", err)
	}
	timesDone := workout.TimesDone + 1
	lastDone := max(workout.LastDone, key)
	_, err = updateOwned[model.Workout](ctx, c.records, s, workoutID, model.WorkoutPatch{
		TimesDone: &timesDone,
		LastDone:  &lastDone,
	})
	if err != nil {
		slog.Error("check stored but workout counters not updated", "user_id", s.UserID, "workout_id", workoutID, "error", err)
		return check, true, fmt.Errorf("update workout counters: %w", err)
	}

	return check, true, nil
}

// Undo removes the workout's check on day and recounts the workout.
func (c *CheckService) Undo(ctx context.Context, s *model.Session, workoutID string, day time.Time) error {
	if err := requireSession(s); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.find(ctx, s, workoutID, temporal.DayKey(day, s.Loc()))
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	for _, check := range existing {
		if err := c.records.Delete(ctx, model.CollectionDailyChecks, check.ID); err != nil {
			return err
		}
	}

	_, err = c.recount(ctx, s, workoutID)
	c.notify.Changed(ctx, s)
	return err
}

// Recount recomputes times_done and last_done from the check records.
func (c *CheckService) Recount(ctx context.Context, s *model.Session, workoutID string) (*model.Workout, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	workout, err := c.recount(ctx, s, workoutID)
	if err != nil {
		return nil, err
	}
	c.notify.Changed(ctx, s)
	return workout, nil
}

func (c *CheckService) recount(ctx context.Context, s *model.Session, workoutID string) (*model.Workout, error) {
	checks, err := listOwned[model.DailyCheck](ctx, c.records, s, repository.FieldEquals("workout_id", workoutID))
	if err != nil {
		return nil, err
	}

	days := make(map[string]bool, len(checks))
	lastDone := ""
	for _, check := range checks {
		days[check.Date] = true
		lastDone = max(lastDone, check.Date)
	}
	timesDone := len(days)

	return updateOwned[model.Workout](ctx, c.records, s, workoutID, model.WorkoutPatch{
		TimesDone: &timesDone,
		LastDone:  &lastDone,
	})
}

func (c *CheckService) ForDay(ctx context.Context, s *model.Session, day time.Time) ([]*model.DailyCheck, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	return listOwned[model.DailyCheck](ctx, c.records, s,
		repository.FieldEquals("date", temporal.DayKey(day, s.Loc())))
}

func (c *CheckService) find(ctx context.Context, s *model.Session, workoutID, day string) ([]*model.DailyCheck, error) {
	return listOwned[model.DailyCheck](ctx, c.records, s, repository.And(
		repository.FieldEquals("date", day),
		repository.FieldEquals("workout_id", workoutID),
	))
}
