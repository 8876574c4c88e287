package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// Record is the unit the store persists: an owner-scoped, identifier-keyed
// bag of fields inside a named collection.
type Record struct {
	ID         string    `db:"id" json:"id" cbor:"id"`
	Collection string    `db:"collection" json:"collection" cbor:"collection"`
	UserID     string    `db:"user_id" json:"user_id" cbor:"user_id"`
	Fields     Fields    `db:"fields" json:"fields" cbor:"fields"`
	Seq        int64     `db:"seq" json:"-" cbor:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at" cbor:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at" cbor:"updated_at"`
}

// Fields holds a record's typed values, persisted as a JSON object.
type Fields map[string]any

// Merge returns a copy of f with every key of patch applied on top.
func (f Fields) Merge(patch Fields) Fields {
	out := make(Fields, len(f)+len(patch))
	maps.Copy(out, f)
	maps.Copy(out, patch)
	return out
}

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// String returns the string stored under key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Number returns the numeric value stored under key as float64.
func (f Fields) Number(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

func (f *Fields) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("decode fields: unsupported type %T", src)
	}

	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	*f = out
	return nil
}

// Meta carries the store-managed identity of a typed entity.
type Meta struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
}

func (m *Meta) Base() *Meta { return m }

// Order is the insertion position assigned by the store.
func (m Meta) Order() int64 { return m.Seq }

// Entity is a typed view of one collection's records.
type Entity interface {
	Collection() string
	Base() *Meta
}

// Patch is a partial update for one collection. Nil pointer fields are
// left untouched by the store's merge.
type Patch interface {
	Collection() string
}

var ErrWrongCollection = errors.New("record belongs to another collection")

// ToRecord converts a typed entity into a schema-less record.
func ToRecord(e Entity) (*Record, error) {
	fields, err := toFields(e)
	if err != nil {
		return nil, err
	}
	base := e.Base()
	return &Record{
		ID:         base.ID,
		Collection: e.Collection(),
		UserID:     base.UserID,
		Fields:     fields,
		CreatedAt:  base.CreatedAt,
	}, nil
}

// FromRecord decodes a record into the typed entity T.
func FromRecord[T any, PT interface {
	*T
	Entity
}](r Record) (PT, error) {
	var v T
	p := PT(&v)
	if r.Collection != p.Collection() {
		return nil, fmt.Errorf("%w: %s is not %s", ErrWrongCollection, r.Collection, p.Collection())
	}

	raw, err := json.Marshal(r.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Collection, err)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Collection, err)
	}

	*p.Base() = Meta{ID: r.ID, UserID: r.UserID, Seq: r.Seq, CreatedAt: r.CreatedAt}
	return p, nil
}

// FromRecords decodes every record, stopping at the first error.
func FromRecords[T any, PT interface {
	*T
	Entity
}](records []Record) ([]PT, error) {
	out := make([]PT, 0, len(records))
	for _, r := range records {
		e, err := FromRecord[T, PT](r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// PatchFields converts a patch into the subset of fields it sets.
func PatchFields(p Patch) (Fields, error) {
	return toFields(p)
}

func toFields(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return out, nil
}
