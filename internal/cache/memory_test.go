package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedCache() (*MemoryCache, *time.Time) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCache_SetGetExpire(t *testing.T) {
	c, now := newClockedCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)

	*now = now.Add(time.Minute)
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))
	_, found, _ := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryCache_SnapshotsAreMonotonic(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	id := uuid.New()

	wrote, err := c.PutSnapshot(ctx, models.StatusSnapshot{RequestID: id, Seq: 2, Phase: models.PhaseRunning}, time.Minute)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = c.PutSnapshot(ctx, models.StatusSnapshot{RequestID: id, Seq: 1}, time.Minute)
	require.NoError(t, err)
	assert.False(t, wrote)

	snap, found, err := c.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, snap.Seq)
}

func TestMemoryCache_IncrWithExpiry(t *testing.T) {
	c, now := newClockedCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrWithExpiry(ctx, RateLimitKey("u"), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	*now = now.Add(2 * time.Minute)
	got, err := c.IncrWithExpiry(ctx, RateLimitKey("u"), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryCache_WritesSweepExpiredEntries(t *testing.T) {
	c, now := newClockedCache()
	ctx := context.Background()

	_, err := c.PutSnapshot(ctx, models.StatusSnapshot{RequestID: uuid.New(), Seq: 1}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "card", []byte("{}"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("x"), 0))

	*now = now.Add(30 * time.Second)
	require.NoError(t, c.Set(ctx, "early", []byte("x"), time.Hour))
	assert.Len(t, c.snapshots, 1, "no sweep before the interval elapses")

	*now = now.Add(2 * time.Minute)
	_, err = c.PutSnapshot(ctx, models.StatusSnapshot{RequestID: uuid.New(), Seq: 1}, time.Minute)
	require.NoError(t, err)

	assert.Len(t, c.snapshots, 1)
	assert.NotContains(t, c.entries, "card")
	assert.Contains(t, c.entries, "forever")
	assert.Contains(t, c.entries, "early")
}
