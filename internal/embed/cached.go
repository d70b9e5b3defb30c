package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by content hash.
// Re-indexing unchanged files becomes nearly free.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// cacheKey hashes text so arbitrarily large chunks stay cheap as map keys.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached embedding when available.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch embeds only the cache misses and reassembles results in
// input order.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.Get(cacheKey(text)); ok {
			results[i] = vec
		} else {
			missTexts = append(missTexts, text)
			missIdx = append(missIdx, i)
		}
	}

	if len(missTexts) > 0 {
		vecs, err := e.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			results[missIdx[j]] = vec
			e.cache.Add(cacheKey(missTexts[j]), vec)
		}
	}

	return results, nil
}

// Dimensions returns the inner embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// ModelName returns the inner embedder's model identifier.
func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

// Available delegates to the inner embedder.
func (e *CachedEmbedder) Available(ctx context.Context) bool {
	return e.inner.Available(ctx)
}

// Close purges the cache and closes the inner embedder.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}
