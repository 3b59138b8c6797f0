package chain

import (
	"errors"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_BuildsOncePerConfig(t *testing.T) {
	f := newFixture(t, true, "x")
	builds := 0
	cache := NewCache(func(cfg Config) (*Chain, error) {
		builds++
		return New(f.store, f.generator, f.sessions, cfg)
	})

	a, err := cache.Get(Config{K: 3})
	require.NoError(t, err)
	b, err := cache.Get(Config{K: 3})
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)

	c, err := cache.Get(Config{K: 3, Summarize: true})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.True(t, c.Config().Summarize)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 2, cache.Len())
}

func TestCache_Clear(t *testing.T) {
	f := newFixture(t, true, "x")
	builds := 0
	cache := NewCache(func(cfg Config) (*Chain, error) {
		builds++
		return New(f.store, f.generator, f.sessions, cfg)
	})

	first, err := cache.Get(DefaultConfig())
	require.NoError(t, err)
	cache.Clear()
	assert.Zero(t, cache.Len())

	second, err := cache.Get(DefaultConfig())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, builds)
}

func TestCache_Errors(t *testing.T) {
	boom := errors.New("boom")
	cache := NewCache(func(Config) (*Chain, error) {
		return nil, boom
	})

	_, err := cache.Get(Config{K: 0})
	assert.ErrorIs(t, err, core.ErrInvalidK)

	_, err = cache.Get(DefaultConfig())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, cache.Len())
}
