package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
	"github.com/vladislavdragonenkov/tpoints/internal/storage/memory"
	"github.com/vladislavdragonenkov/tpoints/internal/storage/postgres"
)

// Storage — то, что приложение требует от хранилища: транзакции, доступ к
// репозиториям вне транзакции и справочник статусов.
type Storage interface {
	domain.TxManager
	domain.Tx
	Statuses() domain.StatusRepository
}

type runtimeStorage struct {
	store Storage
	ping  func(ctx context.Context) error
	close func() error
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeStorage, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return &runtimeStorage{
			store: memory.NewStore(memory.WithLockTimeout(cfg.LockTimeout)),
			ping:  func(context.Context) error { return nil },
			close: func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithLockTimeout(cfg.LockTimeout))
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.Info("postgres storage initialized")
		return &runtimeStorage{store: store, ping: store.Ping, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
