package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fitsync/internal/id"
	"github.com/templui/fitsync/internal/model"
)

var (
	ErrTokenNotFound = errors.New("access token not found")
)

type TokenRepository interface {
	Save(ctx context.Context, token *model.AccessToken) error
	Active(ctx context.Context) (*model.AccessToken, error)
	ByUser(ctx context.Context, userID string) (*model.AccessToken, error)
	Revoke(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Save stores the token as the device's only credential. Tokens of earlier
// sessions are removed in the same transaction.
func (r *tokenRepository) Save(ctx context.Context, token *model.AccessToken) error {
	if token.ID == "" {
		token.ID = id.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM access_tokens`)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO access_tokens (id, user_id, token, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		_, err = tx.ExecContext(ctx, query,
			token.ID,
			token.UserID,
			token.Token,
			token.ExpiresAt,
			token.CreatedAt,
		)
		return err
	})
}

// Active returns the most recently saved token.
func (r *tokenRepository) Active(ctx context.Context) (*model.AccessToken, error) {
	var t model.AccessToken
	err := r.db.GetContext(ctx, &t,
		`SELECT * FROM access_tokens ORDER BY created_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) ByUser(ctx context.Context, userID string) (*model.AccessToken, error) {
	var t model.AccessToken
	err := r.db.GetContext(ctx, &t,
		`SELECT * FROM access_tokens WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Revoke deletes every stored token of the user. Revoking twice is fine.
func (r *tokenRepository) Revoke(ctx context.Context, userID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID)
		return err
	})
}

// DeleteExpired removes tokens whose expiry has passed.
func (r *tokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	return rows, err
}
