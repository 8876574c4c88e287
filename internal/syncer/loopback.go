package syncer

import (
	"context"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
)

// LoopbackRemote is used when no remote is configured. Pushes are accepted
// and dropped; pulls hand back the local records, so a pull never loses data.
type LoopbackRemote struct {
	records repository.RecordRepository
}

func NewLoopbackRemote(records repository.RecordRepository) *LoopbackRemote {
	return &LoopbackRemote{records: records}
}

func (r *LoopbackRemote) PushBatch(ctx context.Context, token, ownerID string, changes []model.Change) error {
	return nil
}

func (r *LoopbackRemote) PullAll(ctx context.Context, token, ownerID string) (*model.Dataset, error) {
	records, err := r.records.Snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &model.Dataset{OwnerID: ownerID, Records: records, GeneratedAt: time.Now().UTC()}, nil
}
