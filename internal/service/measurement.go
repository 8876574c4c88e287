package service

import (
	"context"
	"slices"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/temporal"
	"github.com/templui/fitsync/internal/validation"
)

type MeasurementService struct {
	records repository.RecordRepository
	notify  Notifier
	now     func() time.Time
}

func NewMeasurementService(records repository.RecordRepository, notify Notifier) *MeasurementService {
	return &MeasurementService{records: records, notify: orNop(notify), now: time.Now}
}

// Add records a body measurement. An empty unit means the kind's canonical
// unit; a zero date means now.
func (m *MeasurementService) Add(ctx context.Context, s *model.Session, kind string, value float64, unit string, date time.Time) (*model.Measurement, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	units, ok := model.MeasurementUnits[kind]
	if !ok {
		return nil, validation.ValidateOneOf("kind", kind, measurementKinds())
	}
	if unit == "" {
		unit = units[0]
	}
	if err := validation.ValidateOneOf("unit", unit, units); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("value", value); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = m.now()
	}

	measurement := &model.Measurement{Date: date.UTC(), Kind: kind, Value: value, Unit: unit}
	if err := insertEntity(ctx, m.records, s, measurement); err != nil {
		return nil, err
	}

	m.notify.Changed(ctx, s)
	return measurement, nil
}

// Latest returns the most recent measurement of kind, or nil.
func (m *MeasurementService) Latest(ctx context.Context, s *model.Session, kind string) (*model.Measurement, error) {
	history, err := m.History(ctx, s, kind)
	if err != nil {
		return nil, err
	}
	latest, ok := temporal.Latest(history)
	if !ok {
		return nil, nil
	}
	return latest, nil
}

// History lists measurements of kind, oldest first.
func (m *MeasurementService) History(ctx context.Context, s *model.Session, kind string) ([]*model.Measurement, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}

	history, err := listOwned[model.Measurement](ctx, m.records, s, repository.FieldEquals("kind", kind))
	if err != nil {
		return nil, err
	}
	temporal.Sort(history)
	return history, nil
}

func (m *MeasurementService) Delete(ctx context.Context, s *model.Session, measurementID string) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if err := deleteOwned(ctx, m.records, s, model.CollectionMeasurements, measurementID); err != nil {
		return err
	}
	m.notify.Changed(ctx, s)
	return nil
}

func measurementKinds() []string {
	kinds := make([]string, 0, len(model.MeasurementUnits))
	for k := range model.MeasurementUnits {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
