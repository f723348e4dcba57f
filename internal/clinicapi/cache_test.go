package clinicapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLister struct {
	calls    int
	dentists []Dentist
	err      error
}

func (l *countingLister) ListDentists(context.Context) ([]Dentist, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.dentists, nil
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestDentistCache_HitsBackendOncePerTTL(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	source := &countingLister{dentists: []Dentist{{ID: "7", Name: "Dr. Reyes", Days: []DayIndex{1, 3, 5}}}}
	cache := NewDentistCache(redisClient, source, "test", time.Minute, nil)
	ctx := context.Background()

	first, err := cache.ListDentists(ctx)
	require.NoError(t, err)
	second, err := cache.ListDentists(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("dentalbook:dentists:test"))

	mr.FastForward(2 * time.Minute)
	_, err = cache.ListDentists(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestDentistCache_GetDentistAndInvalidate(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	source := &countingLister{dentists: []Dentist{{ID: "7", Name: "Dr. Reyes"}, {ID: "8", Name: "Dr. Cruz"}}}
	cache := NewDentistCache(redisClient, source, "test", time.Minute, nil)
	ctx := context.Background()

	d, err := cache.GetDentist(ctx, "8")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Cruz", d.Name)

	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists("dentalbook:dentists:test"))

	_, err = cache.GetDentist(ctx, "99")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, source.calls)
}

func TestDentistCache_RedisDownFallsBackToSource(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	mr.Close()

	source := &countingLister{dentists: []Dentist{{ID: "7"}}}
	cache := NewDentistCache(redisClient, source, "test", time.Minute, nil)

	dentists, err := cache.ListDentists(context.Background())
	require.NoError(t, err)
	assert.Len(t, dentists, 1)
	assert.Equal(t, 1, source.calls)
}

func TestDentistCache_CorruptEntryRefetches(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("dentalbook:dentists:test", "{not json"))

	source := &countingLister{dentists: []Dentist{{ID: "7"}}}
	cache := NewDentistCache(redisClient, source, "test", time.Minute, nil)

	dentists, err := cache.ListDentists(context.Background())
	require.NoError(t, err)
	assert.Len(t, dentists, 1)
	assert.Equal(t, 1, source.calls)
}

func TestDentistCache_NilRedisPassesThrough(t *testing.T) {
	source := &countingLister{err: errors.New("backend down")}
	cache := NewDentistCache(nil, source, "test", 0, nil)

	_, err := cache.ListDentists(context.Background())
	assert.EqualError(t, err, "backend down")
	assert.NoError(t, cache.Invalidate(context.Background()))
}
