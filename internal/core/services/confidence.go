package services

import (
	"math"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// ConfidenceScore converts a filtered result set into a single answer
// confidence in [0, 1]: the arithmetic mean of the results' similarity,
// rounded to 3 decimals. Empty input scores exactly 0.0. Rank carries no
// extra weight beyond what similarity already encodes.
func ConfidenceScore(results []domain.SearchResult) float64 {
	if len(results) == 0 {
		return 0.0
	}

	var sum float64
	for _, r := range results {
		sum += r.Similarity
	}
	mean := sum / float64(len(results))

	return math.Round(mean*1000) / 1000
}
