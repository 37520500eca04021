// Package memory provides in-memory implementations of the driven
// storage ports, used in tests and as a zero-dependency local mode.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory exact-cosine vector index.
// Queries are embedded via the injected embedding service; distances are
// true cosine distances in [0, 2].
type VectorIndex struct {
	mu       sync.RWMutex
	chunks   []domain.Chunk
	embedder driven.EmbeddingService
}

// NewVectorIndex creates an empty index.
func NewVectorIndex(embedder driven.EmbeddingService) *VectorIndex {
	return &VectorIndex{embedder: embedder}
}

// Add stores chunks after validation.
func (x *VectorIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks = append(x.chunks, chunks...)
	return nil
}

// Search embeds the query and returns the n nearest chunks by cosine
// distance, best first.
func (x *VectorIndex) Search(ctx context.Context, query string, n int) ([]domain.SearchResult, error) {
	if x.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	qv, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(x.chunks))
	for _, c := range x.chunks {
		results = append(results, domain.SearchResult{
			Content:    c.Content,
			Metadata:   c.Metadata,
			Distance:   cosineDistance(qv, c.Embedding),
			TrueVector: true,
		}.Sanitize())
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if n >= 0 && n < len(results) {
		results = results[:n]
	}
	return results, nil
}

// List returns one summary per filename.
func (x *VectorIndex) List(_ context.Context) ([]domain.DocumentSummary, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, c := range x.chunks {
		if _, seen := counts[c.Metadata.Filename]; !seen {
			order = append(order, c.Metadata.Filename)
		}
		counts[c.Metadata.Filename]++
	}

	summaries := make([]domain.DocumentSummary, 0, len(order))
	for _, f := range order {
		summaries = append(summaries, domain.DocumentSummary{Filename: f, ChunkCount: counts[f]})
	}
	return summaries, nil
}

// Delete removes every chunk for the filename.
func (x *VectorIndex) Delete(_ context.Context, filename string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.chunks[:0]
	for _, c := range x.chunks {
		if c.Metadata.Filename != filename {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(x.chunks) {
		return fmt.Errorf("document %q: %w", filename, domain.ErrNotFound)
	}
	x.chunks = kept
	return nil
}

// TrueVector reports that distances are exact cosine distances.
func (x *VectorIndex) TrueVector() bool { return true }

// Close releases nothing for the in-memory index.
func (x *VectorIndex) Close() error { return nil }

// cosineDistance computes 1 - cosine similarity, clamped into [0, 2].
// Zero-magnitude vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return domain.MaxDistance
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return domain.MaxDistance
	}

	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		d = 0
	}
	if d > domain.MaxDistance {
		d = domain.MaxDistance
	}
	return d
}
