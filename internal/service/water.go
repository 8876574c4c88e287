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
	"github.com/templui/fitsync/internal/validation"
)

type WaterService struct {
	records repository.RecordRepository
	notify  Notifier
	now     func() time.Time

	// Serializes read-then-write so two adds cannot both insert.
	mu sync.Mutex
}

func NewWaterService(records repository.RecordRepository, notify Notifier) *WaterService {
	return &WaterService{records: records, notify: orNop(notify), now: time.Now}
}

// AddAmount adds ml to today's total.
func (w *WaterService) AddAmount(ctx context.Context, s *model.Session, ml int) (*model.WaterIntake, error) {
	return w.AddAmountOn(ctx, s, w.now(), ml)
}

// AddAmountOn adds ml to the total of day. The owner has at most one water
// record per day: an existing one is increased, otherwise one is created.
// Duplicates left behind by a merge from another device are folded into the
// oldest and removed.
func (w *WaterService) AddAmountOn(ctx context.Context, s *model.Session, day time.Time, ml int) (*model.WaterIntake, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("amount_ml", float64(ml)); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	key := temporal.DayKey(day, s.Loc())
	existing, err := listOwned[model.WaterIntake](ctx, w.records, s, repository.FieldEquals("date", key))
	if err != nil {
		return nil, err
	}

	var result *model.WaterIntake
	if len(existing) == 0 {
		result = &model.WaterIntake{Date: key, AmountML: ml}
		if err := insertEntity(ctx, w.records, s, result); err != nil {
			return nil, err
		}
	} else {
		first := existing[0]
		total := first.AmountML + ml
		for _, dup := range existing[1:] {
			total += dup.AmountML
		}

		result, err = updateOwned[model.WaterIntake](ctx, w.records, s, first.ID, model.WaterIntakePatch{AmountML: &total})
		if err != nil {
			return nil, err
		}

		for _, dup := range existing[1:] {
			slog.Warn("folding duplicate water record", "user_id", s.UserID, "date", key, "record_id", dup.ID)
			if err := w.records.Delete(ctx, model.CollectionWaterIntake, dup.ID); err != nil {
				return nil, fmt.Errorf("fold water duplicate: %w", err)
			}
		}
	}

	w.notify.Changed(ctx, s)
	return result, nil
}

// ForDay returns the day's water record, or nil when nothing was logged.
func (w *WaterService) ForDay(ctx context.Context, s *model.Session, day time.Time) (*model.WaterIntake, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	key := temporal.DayKey(day, s.Loc())
	existing, err := listOwned[model.WaterIntake](ctx, w.records, s, repository.FieldEquals("date", key))
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	out := *existing[0]
	for _, dup := range existing[1:] {
		out.AmountML += dup.AmountML
	}
	return &out, nil
}
