package driven

import (
	"context"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// VectorIndex persists chunks and answers nearest-neighbour queries.
//
// Two families of implementation exist: true vector similarity indexes
// (pgvector, chromem) whose Distance is a cosine distance in [0, 2], and
// the lexical fallback whose Distance is a rank-derived proxy in the same
// nominal range. TrueVector distinguishes them so downstream threshold
// logic knows which semantics it is looking at.
type VectorIndex interface {
	// Search returns the n nearest chunks to the query, best first.
	// Results carry the backend's TrueVector capability flag.
	Search(ctx context.Context, query string, n int) ([]domain.SearchResult, error)

	// Add stores chunks. Chunks with empty content are rejected.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// List returns a summary per indexed document.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Delete removes every chunk belonging to the named file.
	Delete(ctx context.Context, filename string) error

	// TrueVector reports whether Distance is a true vector-similarity
	// distance rather than a rank-derived proxy.
	TrueVector() bool

	// Close releases resources.
	Close() error
}
