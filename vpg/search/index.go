// Package search keeps an in-memory embedding index of assets, updated by
// the search-index job.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Hit is a query result.
type Hit struct {
	ID    string
	Score float64
}

// Index maps asset IDs to normalized embeddings.
type Index struct {
	provider Provider
	mu       sync.RWMutex
	vectors  map[string][]float32
}

func NewIndex(provider Provider) *Index {
	return &Index{
		provider: provider,
		vectors:  make(map[string][]float32),
	}
}

// Upsert embeds text and stores it under id.
func (idx *Index) Upsert(ctx context.Context, id, text string) error {
	vecs, err := idx.provider.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed asset %s: %w", id, err)
	}
	vec := normalize(vecs[0])

	idx.mu.Lock()
	idx.vectors[id] = vec
	idx.mu.Unlock()
	return nil
}

func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	delete(idx.vectors, id)
	idx.mu.Unlock()
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Query returns the k best matches by cosine similarity. Ties are broken by
// ID so results are stable.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	vecs, err := idx.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	q := normalize(vecs[0])

	idx.mu.RLock()
	hits := make([]Hit, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		score := dot(q, v)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: score})
	}
	idx.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
