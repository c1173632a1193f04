package scheduler

import (
	"sync"
	"time"
)

// Clock — источник текущего времени планировщика.
type Clock interface {
	Now() time.Time
}

// SystemClock возвращает реальное время в заданной зоне.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FakeClock управляемые часы для тестов.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock создаёт часы, остановленные на now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set переставляет часы.
func (c *FakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance сдвигает часы вперёд на d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
