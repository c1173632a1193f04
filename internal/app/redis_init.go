package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
)

// initRunMarker выбирает хранилище дневных отметок планировщика.
// Без REDIS_URL отметки живут в памяти процесса; клиент при этом nil.
func initRunMarker(ctx context.Context, cfg Config, logger *log.Entry) (scheduler.RunMarker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return scheduler.NewMemoryMarker(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	marker, err := scheduler.NewRedisMarker(client, cfg.RedisKeyPrefix, cfg.MarkerTTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.WithField("prefix", cfg.RedisKeyPrefix).Info("redis run marker initialized")
	return marker, client, nil
}
