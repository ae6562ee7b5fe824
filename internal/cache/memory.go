package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// sweepInterval bounds how often writes scan for expired entries.
const sweepInterval = time.Minute

// MemoryCache is a process-local Cache used when no Redis URL is configured.
// Expired entries are dropped on read and swept by writes at most once per
// sweepInterval, so entries that are never read again do not accumulate.
type MemoryCache struct {
	mu        sync.Mutex
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]memoryEntry
	snapshots map[uuid.UUID]snapshotEntry
}

type memoryEntry struct {
	value   []byte
	counter int64
	expires time.Time
}

type snapshotEntry struct {
	snap    models.StatusSnapshot
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		now:       time.Now,
		entries:   map[string]memoryEntry{},
		snapshots: map[uuid.UUID]snapshotEntry{},
	}
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	c.entries[key] = memoryEntry{value: append([]byte(nil), value...), expires: c.deadline(ttl)}
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.expired(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) PutSnapshot(ctx context.Context, snap models.StatusSnapshot, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	cur, ok := c.snapshots[snap.RequestID]
	if ok && !c.expired(cur.expires) && cur.snap.Seq >= snap.Seq {
		return false, nil
	}
	c.snapshots[snap.RequestID] = snapshotEntry{snap: snap, expires: c.deadline(ttl)}
	return true, nil
}

func (c *MemoryCache) GetSnapshot(ctx context.Context, requestID uuid.UUID) (models.StatusSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.snapshots[requestID]
	if !ok || c.expired(e.expires) {
		delete(c.snapshots, requestID)
		return models.StatusSnapshot{}, false, nil
	}
	return e.snap, true, nil
}

// IncrWithExpiry matches the Redis behaviour: every increment refreshes the expiry.
func (c *MemoryCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	e := c.entries[key]
	if c.expired(e.expires) {
		e = memoryEntry{}
	}
	e.counter++
	e.expires = c.deadline(expiry)
	c.entries[key] = e
	return e.counter, nil
}

// sweep drops expired entries. Callers hold c.mu.
func (c *MemoryCache) sweep() {
	now := c.now()
	if now.Sub(c.lastSweep) < sweepInterval {
		return
	}
	c.lastSweep = now
	for k, e := range c.entries {
		if c.expired(e.expires) {
			delete(c.entries, k)
		}
	}
	for id, e := range c.snapshots {
		if c.expired(e.expires) {
			delete(c.snapshots, id)
		}
	}
}

func (c *MemoryCache) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *MemoryCache) expired(t time.Time) bool {
	return !t.IsZero() && !c.now().Before(t)
}

var _ Cache = (*MemoryCache)(nil)
