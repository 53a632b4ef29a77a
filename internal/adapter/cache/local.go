package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/ports"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// LocalStore is the in-memory marker store used when Redis is not configured.
// Markers do not survive a restart and are not shared between replicas.
type LocalStore struct {
	data     map[string]entry
	mu       sync.Mutex
	log      *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewLocalStore(cleanupInterval time.Duration, log *zap.Logger) ports.MarkerStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &LocalStore{
		data:   make(map[string]entry),
		log:    log,
		stopCh: make(chan struct{}),
	}

	go c.cleanupLoop(cleanupInterval)

	log.Info("Local in-memory marker store initialized",
		zap.Duration("cleanup_interval", cleanupInterval),
	)
	return c
}

func (c *LocalStore) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.data[key]; ok && !e.expired(now) {
		return false, nil
	}

	e := entry{value: value}
	if expiration > 0 {
		e.expiresAt = now.Add(expiration)
	}
	c.data[key] = e
	return true, nil
}

func (c *LocalStore) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *LocalStore) Ping() error {
	return nil
}

func (c *LocalStore) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *LocalStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *LocalStore) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, e := range c.data {
		if e.expired(now) {
			delete(c.data, key)
			expired++
		}
	}

	if expired > 0 {
		c.log.Debug("Marker cleanup completed", zap.Int("expired_entries", expired))
	}
}
