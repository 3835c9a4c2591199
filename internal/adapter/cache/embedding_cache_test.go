package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingCacheHitAndMiss(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)

	_, ok := c.Get("m", "hello")
	assert.False(t, ok)

	c.Put("m", "hello", []float32{1, 2, 3})
	vec, ok := c.Get("m", "hello")
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	_, ok = c.Get("other-model", "hello")
	assert.False(t, ok, "entries are scoped to the model")
}

func TestEmbeddingCacheReturnsCopies(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	original := []float32{1, 2}
	c.Put("m", "x", original)
	original[0] = 99

	vec, _ := c.Get("m", "x")
	vec[1] = 42

	again, _ := c.Get("m", "x")
	assert.Equal(t, []float32{1, 2}, again)
}

func TestEmbeddingCacheEviction(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})
	c.Get("m", "a")
	c.Put("m", "c", []float32{3})

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("m", "b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("m", "a")
	assert.True(t, ok)
}

func TestEmbeddingCacheExpiry(t *testing.T) {
	c := NewEmbeddingCache(10, 20*time.Millisecond)
	c.Put("m", "a", []float32{1})

	assert.Eventually(t, func() bool {
		_, ok := c.Get("m", "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestEmbeddingCacheInvalidate(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Invalidate()
	assert.Equal(t, 0, c.Size())
}
