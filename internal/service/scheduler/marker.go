package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

const (
	defaultMarkerPrefix = "tpoints:scheduler"
	defaultMarkerTTL    = 48 * time.Hour
)

// RunMarker отмечает, что проверка типа события уже выполнялась в этот день.
type RunMarker interface {
	// Acquire занимает день; false, если день уже занят.
	Acquire(ctx context.Context, eventType domain.EventType, day time.Time) (bool, error)
	// Release освобождает день после неудачной проверки, чтобы её можно было повторить.
	Release(ctx context.Context, eventType domain.EventType, day time.Time) error
}

func dayKey(eventType domain.EventType, day time.Time) string {
	return fmt.Sprintf("%s:%s", eventType, day.Format("2006-01-02"))
}

// MemoryMarker хранит отметки в памяти процесса.
type MemoryMarker struct {
	mu   sync.Mutex
	runs map[string]struct{}
}

// NewMemoryMarker создаёт пустой MemoryMarker.
func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{runs: make(map[string]struct{})}
}

func (m *MemoryMarker) Acquire(_ context.Context, eventType domain.EventType, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(eventType, day)
	if _, ok := m.runs[key]; ok {
		return false, nil
	}
	m.runs[key] = struct{}{}
	return true, nil
}

func (m *MemoryMarker) Release(_ context.Context, eventType domain.EventType, day time.Time) error {
	m.mu.Lock()
	delete(m.runs, dayKey(eventType, day))
	m.mu.Unlock()
	return nil
}

// redisStore — операции go-redis, которые использует RedisMarker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisMarker хранит отметки в Redis (SETNX + TTL), чтобы перезапуски и реплики
// не повторяли проверку в тот же день.
type RedisMarker struct {
	client redisStore
	prefix string
	ttl    time.Duration
}

// NewRedisMarker создаёт RedisMarker; пустой prefix и ttl <= 0 заменяются значениями по умолчанию.
func NewRedisMarker(client redisStore, prefix string, ttl time.Duration) (*RedisMarker, error) {
	if client == nil {
		return nil, errors.New("redis client required for run marker")
	}
	if prefix == "" {
		prefix = defaultMarkerPrefix
	}
	if ttl <= 0 {
		ttl = defaultMarkerTTL
	}
	return &RedisMarker{client: client, prefix: prefix, ttl: ttl}, nil
}

func (m *RedisMarker) key(eventType domain.EventType, day time.Time) string {
	return m.prefix + ":" + dayKey(eventType, day)
}

func (m *RedisMarker) Acquire(ctx context.Context, eventType domain.EventType, day time.Time) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key(eventType, day), time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx run marker: %w", err)
	}
	return ok, nil
}

func (m *RedisMarker) Release(ctx context.Context, eventType domain.EventType, day time.Time) error {
	if err := m.client.Del(ctx, m.key(eventType, day)).Err(); err != nil {
		return fmt.Errorf("delete run marker: %w", err)
	}
	return nil
}
