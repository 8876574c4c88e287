package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
)

func requireSession(s *model.Session) error {
	if !s.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

func collectionOf[T any, PT interface {
	*T
	model.Entity
}]() string {
	var zero T
	return PT(&zero).Collection()
}

// insertEntity stores e for the session owner and copies the assigned
// identity back onto it.
func insertEntity(ctx context.Context, repo repository.RecordRepository, s *model.Session, e model.Entity) error {
	e.Base().UserID = s.UserID
	rec, err := model.ToRecord(e)
	if err != nil {
		return err
	}
	if err := repo.Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec.Collection, err)
	}

	base := e.Base()
	base.ID = rec.ID
	base.Seq = rec.Seq
	base.CreatedAt = rec.CreatedAt
	return nil
}

// listOwned returns the session owner's entities matching pred, in
// insertion order.
func listOwned[T any, PT interface {
	*T
	model.Entity
}](ctx context.Context, repo repository.RecordRepository, s *model.Session, pred repository.Predicate) ([]PT, error) {
	recs, err := repo.QueryOwned(ctx, collectionOf[T, PT](), s.UserID, pred)
	if err != nil {
		return nil, err
	}
	return model.FromRecords[T, PT](recs)
}

// getOwned loads one entity. Records of other owners are reported as
// not found.
func getOwned[T any, PT interface {
	*T
	model.Entity
}](ctx context.Context, repo repository.RecordRepository, s *model.Session, recordID string) (PT, error) {
	rec, err := repo.Get(ctx, collectionOf[T, PT](), recordID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != s.UserID {
		return nil, repository.ErrNotFound
	}
	return model.FromRecord[T, PT](*rec)
}

func updateOwned[T any, PT interface {
	*T
	model.Entity
}](ctx context.Context, repo repository.RecordRepository, s *model.Session, recordID string, patch model.Patch) (PT, error) {
	collection := collectionOf[T, PT]()
	if patch.Collection() != collection {
		return nil, model.ErrWrongCollection
	}
	if _, err := getOwned[T, PT](ctx, repo, s, recordID); err != nil {
		return nil, err
	}

	fields, err := model.PatchFields(patch)
	if err != nil {
		return nil, err
	}
	rec, err := repo.Update(ctx, collection, recordID, fields)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", collection, err)
	}
	return model.FromRecord[T, PT](*rec)
}

// deleteOwned removes a record of the owner. Missing records are fine;
// records of other owners are left alone.
func deleteOwned(ctx context.Context, repo repository.RecordRepository, s *model.Session, collection, recordID string) error {
	rec, err := repo.Get(ctx, collection, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.UserID != s.UserID {
		return repository.ErrNotFound
	}
	return repo.Delete(ctx, collection, recordID)
}
