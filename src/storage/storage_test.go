package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dbType, path string) *models.MConfig {
	return &models.MConfig{Storage: models.MStorageConfig{DBType: dbType, DBPath: path, RetentionDays: 7}}
}

func openBackends(t *testing.T) map[string]interfaces.IDatabase {
	t.Helper()
	log := logger.NewNopLogger("storage")

	mem, err := NewDatabase(testConfig("memory", ""), log)
	require.NoError(t, err)

	lite, err := NewDatabase(testConfig("sqlite", filepath.Join(t.TempDir(), "stock.db")), log)
	require.NoError(t, err)

	out := map[string]interfaces.IDatabase{"memory": mem, "sqlite": lite}
	for name, db := range out {
		require.NoError(t, db.Initialize(), name)
		t.Cleanup(func() { _ = db.Close() })
	}
	return out
}

func TestNewDatabase_Validation(t *testing.T) {
	log := logger.NewNopLogger("storage")

	_, err := NewDatabase(testConfig("mongo", ""), log)
	assert.Error(t, err)

	_, err = NewDatabase(testConfig("sqlite", ""), log)
	assert.Error(t, err)

	_, err = NewDatabase(testConfig("postgres", ""), log)
	assert.Error(t, err)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			acc := &models.MAccount{ID: "id-1", Username: "alice", PasswordHash: "hash", CreatedAt: time.Unix(1700000000, 0)}
			require.NoError(t, db.CreateAccount(ctx, acc))

			dup := &models.MAccount{ID: "id-2", Username: "alice", PasswordHash: "other", CreatedAt: time.Now()}
			assert.ErrorIs(t, db.CreateAccount(ctx, dup), ErrAccountExists)

			got, err := db.GetAccount(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "id-1", got.ID)
			assert.Equal(t, "hash", got.PasswordHash)
			assert.Equal(t, int64(1700000000), got.CreatedAt.Unix())

			_, err = db.GetAccount(ctx, "bob")
			assert.ErrorIs(t, err, ErrAccountNotFound)
		})
	}
}

func TestSnapshotArchive(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			older := &models.MSnapshot{Symbol: "AAPL", Name: "Apple", Price: 150, Volume: "1.00M", ChartData: []float64{149, 150}, UpdatedAt: "10:00:00", FetchedAt: now.Add(-time.Minute)}
			newer := &models.MSnapshot{Symbol: "AAPL", Name: "Apple", Price: 151, Volume: "1.10M", MarketCap: "3.43T", ChartData: []float64{150, 151}, UpdatedAt: "10:01:00", FetchedAt: now}
			msft := &models.MSnapshot{Symbol: "MSFT", Name: "Microsoft", Price: 300, Volume: "900.00K", UpdatedAt: "10:01:00", FetchedAt: now}

			require.NoError(t, db.SaveSnapshots(ctx, []*models.MSnapshot{older, msft}))
			require.NoError(t, db.SaveSnapshots(ctx, []*models.MSnapshot{newer, nil}))
			// same pass archived twice is harmless
			require.NoError(t, db.SaveSnapshots(ctx, []*models.MSnapshot{newer}))

			latest, err := db.LoadLatestSnapshots(ctx)
			require.NoError(t, err)
			require.Len(t, latest, 2)

			assert.Equal(t, "AAPL", latest[0].Symbol)
			assert.Equal(t, 151.0, latest[0].Price)
			assert.Equal(t, "3.43T", latest[0].MarketCap)
			assert.Equal(t, []float64{150, 151}, latest[0].ChartData)
			assert.True(t, now.Equal(latest[0].FetchedAt))
			assert.Equal(t, "MSFT", latest[1].Symbol)

			require.NoError(t, db.CleanupOldData(ctx))
			latest, err = db.LoadLatestSnapshots(ctx)
			require.NoError(t, err)
			assert.Len(t, latest, 2)
		})
	}
}

func TestCleanupDropsExpiredSnapshots(t *testing.T) {
	ctx := context.Background()
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			stale := &models.MSnapshot{Symbol: "NFLX", Price: 400, FetchedAt: time.Now().AddDate(0, 0, -30)}
			require.NoError(t, db.SaveSnapshots(ctx, []*models.MSnapshot{stale}))
			require.NoError(t, db.CleanupOldData(ctx))

			latest, err := db.LoadLatestSnapshots(ctx)
			require.NoError(t, err)
			assert.Empty(t, latest)
		})
	}
}

func TestRedisMirror(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	mirror := NewRedisMirrorFromClient(client, time.Minute, logger.NewNopLogger("redis"))
	require.NoError(t, mirror.Ping(ctx))

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, "prices.AAPL")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	snap := &models.MSnapshot{Symbol: "AAPL", Price: 150.25, Volume: "1.00M"}
	require.NoError(t, mirror.Publish(ctx, []*models.MSnapshot{snap}))

	assert.True(t, mr.Exists("stock:AAPL"))
	assert.Equal(t, time.Minute, mr.TTL("stock:AAPL"))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "prices.AAPL", msg.Channel)
		assert.Contains(t, msg.Payload, `"price":150.25`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}

	got, err := mirror.Latest(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 150.25, got[0].Price)

	require.NoError(t, mirror.Close())
}

func TestNewRedisMirror_DisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, NewRedisMirror(&models.MConfig{}, logger.NewNopLogger("redis")))
}
