package chain

import (
	"log/slog"
	"sync"

	"github.com/patrickmn/go-cache"
)

// Factory builds the chain for a configuration.
type Factory func(Config) (*Chain, error)

// Cache keeps one chain per (K, Summarize) pair. Entries never expire; Clear
// drops them all so the next request rebuilds against the current index.
type Cache struct {
	mu      sync.Mutex
	items   *cache.Cache
	factory Factory
	logger  *slog.Logger
}

// NewCache creates an empty cache that builds chains with factory.
func NewCache(factory Factory) *Cache {
	return &Cache{
		items:   cache.New(cache.NoExpiration, 0),
		factory: factory,
		logger:  slog.Default().With("component", "chain-cache"),
	}
}

// Get returns the cached chain for config, building it on first use.
func (c *Cache) Get(config Config) (*Chain, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	key := config.key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if x, found := c.items.Get(key); found {
		return x.(*Chain), nil
	}
	built, err := c.factory(config)
	if err != nil {
		return nil, err
	}
	c.items.Set(key, built, cache.NoExpiration)
	c.logger.Debug("chain built", "k", config.K, "summarize", config.Summarize)
	return built, nil
}

// Clear drops every cached chain.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Flush()
	c.logger.Debug("chain cache cleared")
}

// Len returns the number of cached chains.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
