package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fitsync/internal/model"
)

// ChangeRepository reads and acknowledges the local change log that
// RecordRepository appends to.
type ChangeRepository interface {
	Pending(ctx context.Context, userID string, limit int) ([]model.Change, error)
	CountPending(ctx context.Context, userID string) (int, error)
	MarkPushed(ctx context.Context, userID string, upToSeq int64, at time.Time) (int64, error)
	PurgePushed(ctx context.Context, before time.Time) (int64, error)
}

type changeRepository struct {
	db *sqlx.DB
}

func NewChangeRepository(db *sqlx.DB) ChangeRepository {
	return &changeRepository{db: db}
}

// Pending returns unpushed changes oldest first. A limit <= 0 returns all.
func (r *changeRepository) Pending(ctx context.Context, userID string, limit int) ([]model.Change, error) {
	var changes []model.Change
	query := `SELECT * FROM record_changes WHERE user_id = $1 AND pushed_at IS NULL ORDER BY seq ASC`

	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &changes, query+` LIMIT $2`, userID, limit)
	} else {
		err = r.db.SelectContext(ctx, &changes, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("pending changes: %w", err)
	}

	return changes, nil
}

func (r *changeRepository) CountPending(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM record_changes WHERE user_id = $1 AND pushed_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("count pending changes: %w", err)
	}
	return count, nil
}

// MarkPushed acknowledges every pending change of the owner up to and
// including upToSeq. Changes appended after the push was read stay pending.
func (r *changeRepository) MarkPushed(ctx context.Context, userID string, upToSeq int64, at time.Time) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE record_changes SET pushed_at = $1 WHERE user_id = $2 AND seq <= $3 AND pushed_at IS NULL`,
			at, userID, upToSeq)
		if err != nil {
			return fmt.Errorf("mark pushed: %w", err)
		}

		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	return rows, nil
}

// PurgePushed removes acknowledged changes older than before. Pending
// changes are never purged.
func (r *changeRepository) PurgePushed(ctx context.Context, before time.Time) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM record_changes WHERE pushed_at IS NOT NULL AND pushed_at < $1`, before)
		if err != nil {
			return fmt.Errorf("purge pushed: %w", err)
		}

		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	return rows, nil
}
