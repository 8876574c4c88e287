package model

import (
	"slices"
	"time"
)

const (
	ChangeUpsert = "upsert"
	ChangeDelete = "delete"
)

// Change is one entry of the local change log. Upserts carry the record's
// full field set after the write and its creation time; deletes carry
// neither.
type Change struct {
	Seq        int64      `db:"seq" cbor:"seq"`
	UserID     string     `db:"user_id" cbor:"user_id"`
	Collection string     `db:"collection" cbor:"collection"`
	RecordID   string     `db:"record_id" cbor:"record_id"`
	Op         string     `db:"op" cbor:"op"`
	Fields     Fields     `db:"fields" cbor:"fields,omitempty"`
	ChangedAt  time.Time  `db:"changed_at" cbor:"changed_at"`
	CreatedAt  *time.Time `db:"created_at" cbor:"created_at,omitempty"`
	PushedAt   *time.Time `db:"pushed_at" cbor:"-"`
}

// RecordCreatedAt is the creation time of the record an upsert describes.
// Changes written before creation times were logged fall back to ChangedAt.
func (c Change) RecordCreatedAt() time.Time {
	if c.CreatedAt != nil && !c.CreatedAt.IsZero() {
		return *c.CreatedAt
	}
	return c.ChangedAt
}

// CompactChanges keeps only the last change per record, preserving the
// order of those last changes.
func CompactChanges(changes []Change) []Change {
	last := make(map[[2]string]int, len(changes))
	for i, c := range changes {
		last[[2]string{c.Collection, c.RecordID}] = i
	}
	out := make([]Change, 0, len(last))
	for i, c := range changes {
		if last[[2]string{c.Collection, c.RecordID}] == i {
			out = append(out, c)
		}
	}
	return out
}

// SyncState is per-owner push/pull bookkeeping.
type SyncState struct {
	UserID        string     `db:"user_id"`
	LastPushAt    *time.Time `db:"last_push_at"`
	LastPullAt    *time.Time `db:"last_pull_at"`
	LastPushError string     `db:"last_push_error"`
	PushedSeq     int64      `db:"pushed_seq"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Dataset is the full remote state of one owner.
type Dataset struct {
	OwnerID     string    `cbor:"owner_id"`
	Records     []Record  `cbor:"records"`
	GeneratedAt time.Time `cbor:"generated_at"`
}

// Apply folds changes into the dataset in order. Records keep their
// relative order; new records are appended.
func (d *Dataset) Apply(changes []Change) {
	index := make(map[[2]string]int, len(d.Records))
	reindex := func(from int) {
		for j := from; j < len(d.Records); j++ {
			index[[2]string{d.Records[j].Collection, d.Records[j].ID}] = j
		}
	}
	reindex(0)

	for _, c := range changes {
		key := [2]string{c.Collection, c.RecordID}
		i, exists := index[key]
		switch c.Op {
		case ChangeDelete:
			if !exists {
				continue
			}
			d.Records = slices.Delete(d.Records, i, i+1)
			delete(index, key)
			reindex(i)
		case ChangeUpsert:
			if exists {
				d.Records[i].Fields = c.Fields.Clone()
				d.Records[i].UpdatedAt = c.ChangedAt
				continue
			}
			d.Records = append(d.Records, Record{
				ID:         c.RecordID,
				Collection: c.Collection,
				UserID:     c.UserID,
				Fields:     c.Fields.Clone(),
				CreatedAt:  c.RecordCreatedAt(),
				UpdatedAt:  c.ChangedAt,
			})
			index[key] = len(d.Records) - 1
		}
	}
}
