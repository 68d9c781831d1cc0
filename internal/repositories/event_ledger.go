package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLedger remembers which payment processor events were already handled.
type EventLedger interface {
	// MarkProcessed records eventID and reports whether this was the first time.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget drops eventID so that a redelivery is handled again.
	Forget(ctx context.Context, eventID string) error
}

// RedisEventLedger keeps processed event ids in Redis with a TTL.
type RedisEventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventLedger(client *redis.Client, ttl time.Duration) *RedisEventLedger {
	return &RedisEventLedger{client: client, ttl: ttl}
}

func (l *RedisEventLedger) key(eventID string) string {
	return "webhook:event:" + eventID
}

func (l *RedisEventLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	first, err := l.client.SetNX(ctx, l.key(eventID), time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event %s: %w", eventID, err)
	}
	return first, nil
}

func (l *RedisEventLedger) Forget(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, l.key(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to forget webhook event %s: %w", eventID, err)
	}
	return nil
}

// MemoryEventLedger is an in-process EventLedger used when Redis is not configured.
type MemoryEventLedger struct {
	seen map[string]time.Time
	ttl  time.Duration
	mu   sync.Mutex
}

func NewMemoryEventLedger(ttl time.Duration) *MemoryEventLedger {
	return &MemoryEventLedger{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (l *MemoryEventLedger) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, at := range l.seen {
		if now.Sub(at) > l.ttl {
			delete(l.seen, id)
		}
	}
	if _, ok := l.seen[eventID]; ok {
		return false, nil
	}
	l.seen[eventID] = now
	return true, nil
}

func (l *MemoryEventLedger) Forget(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.seen, eventID)
	return nil
}
