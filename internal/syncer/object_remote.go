package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/storage"
)

// ObjectRemote keeps each owner's dataset as a single CBOR object in an
// object store. Pushes read, fold and rewrite the object.
type ObjectRemote struct {
	store  storage.Storage
	prefix string
	now    func() time.Time

	mu sync.Mutex
}

func NewObjectRemote(store storage.Storage, prefix string) *ObjectRemote {
	if prefix == "" {
		prefix = "sync"
	}
	return &ObjectRemote{store: store, prefix: prefix, now: time.Now}
}

func (r *ObjectRemote) key(ownerID string) string {
	return fmt.Sprintf("%s/%s/dataset.cbor", r.prefix, ownerID)
}

func (r *ObjectRemote) PushBatch(ctx context.Context, token, ownerID string, changes []model.Change) error {
	if token == "" {
		return ErrUnauthorized
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ds, err := r.load(ctx, ownerID)
	if err != nil {
		return err
	}
	ds.Apply(changes)
	ds.GeneratedAt = r.now().UTC()

	body, err := encMode.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := r.store.Put(ctx, r.key(ownerID), bytes.NewReader(body)); err != nil {
		return fmt.Errorf("%w: %w", ErrSyncUnavailable, err)
	}
	return nil
}

func (r *ObjectRemote) PullAll(ctx context.Context, token, ownerID string) (*model.Dataset, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx, ownerID)
}

// load returns an empty dataset for owners that never pushed.
func (r *ObjectRemote) load(ctx context.Context, ownerID string) (*model.Dataset, error) {
	rc, err := r.store.Get(ctx, r.key(ownerID))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return &model.Dataset{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncUnavailable, err)
	}
	defer rc.Close()

	ds := &model.Dataset{}
	if err := decMode.NewDecoder(rc).Decode(ds); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", ownerID, err)
	}
	if ds.OwnerID == "" {
		ds.OwnerID = ownerID
	}
	return ds, nil
}
