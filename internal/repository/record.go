package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fitsync/internal/id"
	"github.com/templui/fitsync/internal/model"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateIdentifier = errors.New("record identifier already exists")
)

// Predicate selects records in Query. Callers are responsible for
// filtering by owner.
type Predicate func(model.Record) bool

// All matches every record.
func All(model.Record) bool { return true }

func ByOwner(userID string) Predicate {
	return func(r model.Record) bool { return r.UserID == userID }
}

// FieldEquals matches records whose field key holds value. Numbers compare
// by value regardless of their decoded type.
func FieldEquals(key string, value any) Predicate {
	return func(r model.Record) bool {
		got, ok := r.Fields[key]
		if !ok {
			return false
		}
		if want, isNum := (model.Fields{"v": value}).Number("v"); isNum {
			n, ok := r.Fields.Number(key)
			return ok && n == want
		}
		return got == value
	}
}

func And(preds ...Predicate) Predicate {
	return func(r model.Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

type RecordRepository interface {
	Insert(ctx context.Context, record *model.Record) error
	Update(ctx context.Context, collection, id string, fields model.Fields) (*model.Record, error)
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (*model.Record, error)
	Query(ctx context.Context, collection string, pred Predicate) ([]model.Record, error)
	QueryOwned(ctx context.Context, collection, userID string, pred Predicate) ([]model.Record, error)
	Snapshot(ctx context.Context, userID string) ([]model.Record, error)
	Replace(ctx context.Context, userID string, records []model.Record) error
}

type recordRepository struct {
	db *sqlx.DB
}

func NewRecordRepository(db *sqlx.DB) RecordRepository {
	return &recordRepository{db: db}
}

// Insert adds a record and its change-log entry in one transaction.
// Missing ID and timestamps are filled in; Seq is always assigned.
func (r *recordRepository) Insert(ctx context.Context, record *model.Record) error {
	if record.ID == "" {
		record.ID = id.New()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Fields == nil {
		record.Fields = model.Fields{}
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var count int
		err := tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM records WHERE collection = $1 AND id = $2`,
			record.Collection, record.ID)
		if err != nil {
			return fmt.Errorf("insert %s: %w", record.Collection, err)
		}
		if count > 0 {
			return fmt.Errorf("insert %s/%s: %w", record.Collection, record.ID, ErrDuplicateIdentifier)
		}

		seq, err := nextSeq(ctx, tx, "records")
		if err != nil {
			return fmt.Errorf("insert %s: %w", record.Collection, err)
		}

		err = insertRow(ctx, tx, record, seq)
		if err != nil {
			return fmt.Errorf("insert %s: %w", record.Collection, err)
		}
		record.Seq = seq

		return appendChange(ctx, tx, model.Change{
			UserID:     record.UserID,
			Collection: record.Collection,
			RecordID:   record.ID,
			Op:         model.ChangeUpsert,
			Fields:     record.Fields,
			ChangedAt:  now,
			CreatedAt:  &record.CreatedAt,
		})
	})
}

// Update merges fields into the stored record. Keys not listed keep their
// prior values.
func (r *recordRepository) Update(ctx context.Context, collection, recordID string, fields model.Fields) (*model.Record, error) {
	var updated *model.Record

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := getRow(ctx, tx, collection, recordID)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, recordID, err)
		}

		now := time.Now().UTC()
		current.Fields = current.Fields.Merge(fields)
		current.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`UPDATE records SET fields = $1, updated_at = $2 WHERE collection = $3 AND id = $4`,
			current.Fields, current.UpdatedAt, collection, recordID)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, recordID, err)
		}

		updated = current
		return appendChange(ctx, tx, model.Change{
			UserID:     current.UserID,
			Collection: collection,
			RecordID:   recordID,
			Op:         model.ChangeUpsert,
			Fields:     current.Fields,
			ChangedAt:  now,
			CreatedAt:  &current.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a record. Deleting an absent record is not an error and
// leaves no change-log entry.
func (r *recordRepository) Delete(ctx context.Context, collection, recordID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var userID string
		err := tx.GetContext(ctx, &userID,
			`SELECT user_id FROM records WHERE collection = $1 AND id = $2`, collection, recordID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, recordID, err)
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM records WHERE collection = $1 AND id = $2`, collection, recordID)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, recordID, err)
		}

		return appendChange(ctx, tx, model.Change{
			UserID:     userID,
			Collection: collection,
			RecordID:   recordID,
			Op:         model.ChangeDelete,
			ChangedAt:  time.Now().UTC(),
		})
	})
}

func (r *recordRepository) Get(ctx context.Context, collection, recordID string) (*model.Record, error) {
	record := &model.Record{}
	err := r.db.GetContext(ctx, record,
		`SELECT * FROM records WHERE collection = $1 AND id = $2`, collection, recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *recordRepository) Query(ctx context.Context, collection string, pred Predicate) ([]model.Record, error) {
	var rows []model.Record
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM records WHERE collection = $1 ORDER BY seq ASC`, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return filter(rows, pred), nil
}

// QueryOwned is Query with the owner filter evaluated by the database.
func (r *recordRepository) QueryOwned(ctx context.Context, collection, userID string, pred Predicate) ([]model.Record, error) {
	var rows []model.Record
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM records WHERE collection = $1 AND user_id = $2 ORDER BY seq ASC`, collection, userID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return filter(rows, pred), nil
}

func (r *recordRepository) Snapshot(ctx context.Context, userID string) ([]model.Record, error) {
	var rows []model.Record
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM records WHERE user_id = $1 ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", userID, err)
	}
	return rows, nil
}

// Replace swaps an owner's records for the given set in one transaction.
// Changes still waiting to be pushed are applied again on top, so local
// writes the remote has not seen survive a pull.
func (r *recordRepository) Replace(ctx context.Context, userID string, records []model.Record) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var pending []model.Change
		err := tx.SelectContext(ctx, &pending,
			`SELECT * FROM record_changes WHERE user_id = $1 AND pushed_at IS NULL ORDER BY seq ASC`, userID)
		if err != nil {
			return fmt.Errorf("replace: load pending: %w", err)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM records WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("replace: clear: %w", err)
		}

		seq, err := nextSeq(ctx, tx, "records")
		if err != nil {
			return fmt.Errorf("replace: %w", err)
		}

		incoming, err := insertionOrder(userID, records)
		if err != nil {
			return fmt.Errorf("replace: %w", err)
		}
		for i := range incoming {
			if err := insertRow(ctx, tx, &incoming[i], seq); err != nil {
				return fmt.Errorf("replace: insert %s/%s: %w", incoming[i].Collection, incoming[i].ID, err)
			}
			seq++
		}

		for _, c := range pending {
			switch c.Op {
			case model.ChangeDelete:
				_, err = tx.ExecContext(ctx,
					`DELETE FROM records WHERE collection = $1 AND id = $2`, c.Collection, c.RecordID)
			case model.ChangeUpsert:
				var res sql.Result
				res, err = tx.ExecContext(ctx,
					`UPDATE records SET fields = $1, updated_at = $2 WHERE collection = $3 AND id = $4`,
					c.Fields, c.ChangedAt, c.Collection, c.RecordID)
				if err == nil {
					var n int64
					n, err = res.RowsAffected()
					if err == nil && n == 0 {
						err = insertRow(ctx, tx, &model.Record{
							ID:         c.RecordID,
							Collection: c.Collection,
							UserID:     c.UserID,
							Fields:     c.Fields,
							CreatedAt:  c.RecordCreatedAt(),
							UpdatedAt:  c.ChangedAt,
						}, seq)
						seq++
					}
				}
			}
			if err != nil {
				return fmt.Errorf("replace: reapply change %d: %w", c.Seq, err)
			}
		}

		return nil
	})
}

// insertionOrder copies records, fills missing timestamps and orders them by
// creation time. Records created at the same instant keep their given order,
// so the seq assigned on insert reproduces the owner's original order.
func insertionOrder(userID string, records []model.Record) ([]model.Record, error) {
	now := time.Now().UTC()
	out := make([]model.Record, len(records))
	for i, rec := range records {
		if rec.UserID != userID {
			return nil, fmt.Errorf("record %s/%s belongs to %q", rec.Collection, rec.ID, rec.UserID)
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = rec.CreatedAt
		}
		if rec.Fields == nil {
			rec.Fields = model.Fields{}
		}
		out[i] = rec
	}
	slices.SortStableFunc(out, func(a, b model.Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func filter(rows []model.Record, pred Predicate) []model.Record {
	if pred == nil {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func getRow(ctx context.Context, tx *sqlx.Tx, collection, recordID string) (*model.Record, error) {
	record := &model.Record{}
	err := tx.GetContext(ctx, record,
		`SELECT * FROM records WHERE collection = $1 AND id = $2`, collection, recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func insertRow(ctx context.Context, tx *sqlx.Tx, record *model.Record, seq int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO records (collection, id, user_id, fields, seq, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.Collection,
		record.ID,
		record.UserID,
		record.Fields,
		seq,
		record.CreatedAt,
		record.UpdatedAt,
	)
	return err
}

func appendChange(ctx context.Context, tx *sqlx.Tx, change model.Change) error {
	seq, err := nextSeq(ctx, tx, "record_changes")
	if err != nil {
		return fmt.Errorf("append change: %w", err)
	}

	var fields any
	if change.Op == model.ChangeUpsert {
		fields = change.Fields
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO record_changes (seq, user_id, collection, record_id, op, fields, changed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		seq,
		change.UserID,
		change.Collection,
		change.RecordID,
		change.Op,
		fields,
		change.ChangedAt,
		change.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append change: %w", err)
	}
	return nil
}

func nextSeq(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	var seq int64
	err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM `+table)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

// writeLocks serializes writers per database handle. SQLite allows a single
// writer; taking the lock in-process avoids SQLITE_BUSY on upgrade.
var writeLocks sync.Map

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	mu, _ := writeLocks.LoadOrStore(db, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
