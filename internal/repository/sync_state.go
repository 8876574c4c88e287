package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fitsync/internal/model"
)

type SyncStateRepository interface {
	Get(ctx context.Context, userID string) (*model.SyncState, error)
	Save(ctx context.Context, state *model.SyncState) error
}

type syncStateRepository struct {
	db *sqlx.DB
}

func NewSyncStateRepository(db *sqlx.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

// Get returns the owner's state, or an empty one if nothing was recorded yet.
func (r *syncStateRepository) Get(ctx context.Context, userID string) (*model.SyncState, error) {
	state := &model.SyncState{}
	err := r.db.GetContext(ctx, state, `SELECT * FROM sync_state WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.SyncState{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return state, nil
}

func (r *syncStateRepository) Save(ctx context.Context, state *model.SyncState) error {
	state.UpdatedAt = time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO sync_state (user_id, last_push_at, last_pull_at, last_push_error, pushed_seq, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO UPDATE SET
				last_push_at = excluded.last_push_at,
				last_pull_at = excluded.last_pull_at,
				last_push_error = excluded.last_push_error,
				pushed_seq = excluded.pushed_seq,
				updated_at = excluded.updated_at
		`
		_, err := tx.ExecContext(ctx, query,
			state.UserID,
			state.LastPushAt,
			state.LastPullAt,
			state.LastPushError,
			state.PushedSeq,
			state.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save sync state: %w", err)
		}
		return nil
	})
}
