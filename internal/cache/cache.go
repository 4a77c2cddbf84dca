package cache

import (
	"context"
	"fmt"
	"sync"

	"mapreader/internal/store/postgres"

	"github.com/rs/zerolog/log"
)

// LoadStore is the persistent side of the cache.
type LoadStore interface {
	FindLoadByHash(ctx context.Context, hash string) (*postgres.Load, bool, error)
	ListCompletedLoads(ctx context.Context) ([]*postgres.Load, error)
}

// LoadCache provides in-memory + PostgreSQL-backed lookup of map files
// already ingested, keyed by content hash.
type LoadCache struct {
	store  LoadStore
	mu     sync.RWMutex
	memory map[string]*postgres.Load // hash → completed load
}

// NewLoadCache creates a new cache backed by store.
func NewLoadCache(store LoadStore) *LoadCache {
	return &LoadCache{
		store:  store,
		memory: make(map[string]*postgres.Load),
	}
}

// Get returns the completed load for hash, or false if the file was never ingested.
func (c *LoadCache) Get(ctx context.Context, hash string) (*postgres.Load, bool) {
	c.mu.RLock()
	if l, ok := c.memory[hash]; ok {
		c.mu.RUnlock()
		return l, true
	}
	c.mu.RUnlock()

	l, ok, err := c.store.FindLoadByHash(ctx, hash)
	if err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("Load cache lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	c.memory[hash] = l
	c.mu.Unlock()

	return l, true
}

// Set records a completed load in memory. The row itself is written by the store.
func (c *LoadCache) Set(l *postgres.Load) {
	c.mu.Lock()
	c.memory[l.Hash] = l
	c.mu.Unlock()
}

// Len returns the number of loads held in memory.
func (c *LoadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// Preload loads every completed load into memory.
func (c *LoadCache) Preload(ctx context.Context) error {
	loads, err := c.store.ListCompletedLoads(ctx)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Loads arrive newest first; keep the newest per hash.
	for _, l := range loads {
		if _, ok := c.memory[l.Hash]; !ok {
			c.memory[l.Hash] = l
		}
	}

	log.Info().Int("count", len(loads)).Msg("Preloaded load cache")
	return nil
}
