package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fitsync/internal/model"
)

func TestTokens_SaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository(openTestDB(t))

	_, err := repo.Active(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, repo.Save(ctx, &model.AccessToken{UserID: "u1", Token: "t1"}))
	require.NoError(t, repo.Save(ctx, &model.AccessToken{UserID: "u2", Token: "t2"}))

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", active.UserID)
	assert.Equal(t, "t2", active.Token)

	_, err = repo.ByUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokens_Revoke(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository(openTestDB(t))

	require.NoError(t, repo.Save(ctx, &model.AccessToken{UserID: "u1", Token: "t1"}))
	require.NoError(t, repo.Revoke(ctx, "u1"))
	require.NoError(t, repo.Revoke(ctx, "u1"))

	_, err := repo.Active(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokens_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository(openTestDB(t))

	past := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, repo.Save(ctx, &model.AccessToken{UserID: "u1", Token: "t1", ExpiresAt: &past}))

	n, err := repo.DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSyncState_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncStateRepository(openTestDB(t))

	state, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", state.UserID)
	assert.Nil(t, state.LastPushAt)

	now := time.Now().UTC().Truncate(time.Second)
	state.LastPushAt = &now
	state.PushedSeq = 7
	require.NoError(t, repo.Save(ctx, state))

	state.LastPushError = "boom"
	require.NoError(t, repo.Save(ctx, state))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.LastPushAt)
	assert.True(t, now.Equal(*got.LastPushAt))
	assert.Equal(t, int64(7), got.PushedSeq)
	assert.Equal(t, "boom", got.LastPushError)
}
