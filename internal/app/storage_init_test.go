package app

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/service/delivery"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
)

func TestInitStorage_Memory(t *testing.T) {
	st, err := initStorage(context.Background(), DefaultConfig(), log.WithField("test", "memory-storage"))
	require.NoError(t, err)
	require.NotNil(t, st.store)
	assert.NoError(t, st.ping(context.Background()))
	assert.NoError(t, st.close())
}

func TestInitStorage_PostgresRequiresDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres

	_, err := initStorage(context.Background(), cfg, log.WithField("test", "postgres-missing-dsn"))
	assert.Error(t, err)
}

func TestInitStorage_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "sqlite"

	_, err := initStorage(context.Background(), cfg, log.WithField("test", "unsupported-driver"))
	assert.ErrorContains(t, err, "unsupported storage driver")
}

func TestNewDependencies_WiresMemoryStack(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"

	st, err := initStorage(ctx, cfg, log.WithField("test", "deps"))
	require.NoError(t, err)

	deps, err := NewDependencies(ctx, cfg, st.store, delivery.NewLogService(nil), scheduler.NewMemoryMarker(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, deps.Handler)
	require.NotNil(t, deps.Scheduler)

	require.NoError(t, st.store.Accounts().Create(ctx, domain.Account{ID: 1, FullName: "Anna", Role: domain.RoleUser, IsActive: true}))
	require.NoError(t, deps.Boundary.Do(ctx, func(ctx context.Context, w domain.Work) error {
		_, err := deps.Ledger.TopUp(ctx, w, 1, 250, "welcome")
		return err
	}))

	balance, err := deps.Ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 250, balance)

	assert.Equal(t, "🆕 Новый", deps.Registry.DisplayName(domain.OrderStatusNew))
}

func TestSchedulerLiveness(t *testing.T) {
	cfg := DefaultConfig()
	st, err := initStorage(context.Background(), cfg, log.WithField("test", "scheduler"))
	require.NoError(t, err)
	deps, err := NewDependencies(context.Background(), cfg, st.store, delivery.NewLogService(nil), nil, nil, nil)
	require.NoError(t, err)

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	alive := schedulerLiveness(deps.Scheduler, clock)

	ok, message := alive()
	assert.True(t, ok)
	assert.Equal(t, "waiting for first tick", message)

	now = now.Add(2*cfg.SchedulerInterval + time.Minute)
	ok, _ = alive()
	assert.False(t, ok, "no ticks for two intervals must degrade")
}
