package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fitsync/internal/config"
	"github.com/templui/fitsync/internal/db"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:            "development",
		DBDriver:          "sqlite",
		DBConnection:      db.SQLiteDSN(filepath.Join(t.TempDir(), "app.db")),
		SyncRemote:        config.RemoteNone,
		SyncPushInterval:  time.Hour,
		SyncPushThreshold: 1,
		SyncPollInterval:  time.Hour,
		SyncRetryDelay:    time.Millisecond,
	}
}

func TestApp_EndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	runCtx, cancel := context.WithCancel(ctx)
	go a.Engine.Run(runCtx, a.Session)
	t.Cleanup(func() {
		cancel()
		a.Engine.Wait()
	})

	_, err = a.Session(ctx)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	s, err := a.SessionService.SignIn(ctx, raw)
	require.NoError(t, err)

	var last *model.Snapshot
	a.ViewService.Subscribe(func(snap *model.Snapshot) { last = snap })

	_, err = a.WaterService.AddAmount(ctx, s, 250)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 250, last.WaterML())

	// The kick reaches the loop and the threshold of one makes the push due.
	assert.Eventually(t, func() bool {
		n, err := a.Changes.CountPending(ctx, "u1")
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)

	restored, err := a.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", restored.UserID)

	require.NoError(t, a.SessionService.SignOut(ctx, s))
	assert.Nil(t, a.ViewService.Current())
}

func TestApp_UnknownRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.SyncRemote = "carrier-pigeon"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
