package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// EmbeddingCache holds recently computed query embeddings keyed by model and
// content hash. Entries expire after ttl and the least recently used entry is
// evicted once maxSize is reached.
type EmbeddingCache struct {
	entries *expirable.LRU[string, []float32]
}

func NewEmbeddingCache(maxSize int, ttl time.Duration) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &EmbeddingCache{
		entries: expirable.NewLRU[string, []float32](maxSize, nil, ttl),
	}
}

func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached vector so callers cannot mutate the entry.
func (c *EmbeddingCache) Get(model, text string) ([]float32, bool) {
	vec, ok := c.entries.Get(cacheKey(model, text))
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vec...), true
}

func (c *EmbeddingCache) Put(model, text string, vec []float32) {
	c.entries.Add(cacheKey(model, text), append([]float32(nil), vec...))
}

func (c *EmbeddingCache) Invalidate() {
	c.entries.Purge()
}

func (c *EmbeddingCache) Size() int {
	return c.entries.Len()
}
