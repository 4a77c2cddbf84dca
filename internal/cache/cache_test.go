package cache

import (
	"context"
	"errors"
	"testing"

	"mapreader/internal/store/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	loads   map[string]*postgres.Load
	list    []*postgres.Load
	err     error
	lookups int
}

func (f *fakeStore) FindLoadByHash(_ context.Context, hash string) (*postgres.Load, bool, error) {
	f.lookups++
	if f.err != nil {
		return nil, false, f.err
	}
	l, ok := f.loads[hash]
	return l, ok, nil
}

func (f *fakeStore) ListCompletedLoads(context.Context) ([]*postgres.Load, error) {
	return f.list, f.err
}

func TestLoadCache_GetFallsBackToStore(t *testing.T) {
	l := &postgres.Load{ID: uuid.New(), Hash: "abc"}
	store := &fakeStore{loads: map[string]*postgres.Load{"abc": l}}
	c := NewLoadCache(store)

	got, ok := c.Get(context.Background(), "abc")
	require.True(t, ok)
	assert.Same(t, l, got)

	_, ok = c.Get(context.Background(), "abc")
	assert.True(t, ok)
	assert.Equal(t, 1, store.lookups, "second lookup is served from memory")

	_, ok = c.Get(context.Background(), "other")
	assert.False(t, ok)
}

func TestLoadCache_StoreError(t *testing.T) {
	c := NewLoadCache(&fakeStore{err: errors.New("db down")})

	_, ok := c.Get(context.Background(), "abc")
	assert.False(t, ok)
	assert.Error(t, c.Preload(context.Background()))
}

func TestLoadCache_SetAndPreload(t *testing.T) {
	newer := &postgres.Load{ID: uuid.New(), Hash: "h1"}
	older := &postgres.Load{ID: uuid.New(), Hash: "h1"}
	other := &postgres.Load{ID: uuid.New(), Hash: "h2"}
	c := NewLoadCache(&fakeStore{list: []*postgres.Load{newer, older, other}})

	require.NoError(t, c.Preload(context.Background()))
	assert.Equal(t, 2, c.Len())

	got, ok := c.Get(context.Background(), "h1")
	require.True(t, ok)
	assert.Same(t, newer, got)

	fresh := &postgres.Load{ID: uuid.New(), Hash: "h3"}
	c.Set(fresh)
	got, ok = c.Get(context.Background(), "h3")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}
