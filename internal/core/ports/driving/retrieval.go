package driving

import (
	"context"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// Retrieval is the full output of one retrieval pass for a query.
type Retrieval struct {
	// Results are the filtered, sorted, capped candidates.
	Results []domain.SearchResult

	// Threshold is the distance threshold the filter applied.
	Threshold float64

	// Context is the assembled, budget-truncated context block.
	Context string

	// Confidence is the mean similarity of Results in [0, 1].
	Confidence float64

	// Sources are the deduplicated, enriched citations.
	Sources []domain.Source
}

// RetrievalService runs the retrieval pipeline for a query.
type RetrievalService interface {
	// Retrieve embeds and searches the query, filters candidates by the
	// query-dependent relevance threshold, and fans out into context
	// assembly, confidence scoring, and source formatting.
	Retrieve(ctx context.Context, query string) (*Retrieval, error)
}
