package domain

import (
	"math"
	"strconv"
)

// MaxDistance is the worst-case distance. Results with a missing or
// invalid distance are treated as maximally dissimilar so thresholding
// naturally excludes them.
const MaxDistance = 2.0

// SearchResult represents a single nearest-neighbour hit from a vector
// index. Distance semantics are backend-dependent (true cosine distance
// vs a rank-derived proxy) but both are normalised to roughly [0, 2]
// with 0 as the best match.
type SearchResult struct {
	// Content is the matched chunk text.
	Content string

	// Metadata is a copy of the chunk's provenance.
	Metadata ChunkMetadata

	// Distance is the backend's distance value; lower is more similar.
	Distance float64

	// Similarity is 1 - Distance clamped to [0, 1], used for confidence
	// scoring and display.
	Similarity float64

	// PageNumber is a result-level page field set by some backends.
	// It is the last fallback in the page resolution chain.
	PageNumber *int

	// TrueVector reports whether the producing backend is a true vector
	// similarity index. Threshold calibration assumes true-vector
	// distances; fallback backends reuse the same table as a known
	// approximation.
	TrueVector bool
}

// Sanitize normalises a result so malformed records cannot pass the
// relevance filter or inflate confidence. A NaN, negative, or
// out-of-range distance becomes MaxDistance, and Similarity is
// re-derived from Distance.
func (r SearchResult) Sanitize() SearchResult {
	d := r.Distance
	if math.IsNaN(d) || d < 0 || d > MaxDistance {
		d = MaxDistance
	}
	r.Distance = d

	sim := 1 - d
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	r.Similarity = sim
	return r
}

// PageLabel resolves the page display value using the fallback chain
// Metadata.Page, Metadata.PageNumber, result PageNumber, PageUnknown.
func (r SearchResult) PageLabel() string {
	if r.Metadata.Page != "" {
		return r.Metadata.Page
	}
	if r.Metadata.PageNumber != nil {
		return strconv.Itoa(*r.Metadata.PageNumber)
	}
	if r.PageNumber != nil {
		return strconv.Itoa(*r.PageNumber)
	}
	return PageUnknown
}

// DocumentSummary describes an indexed document for listings.
type DocumentSummary struct {
	// Filename is the source document's file name.
	Filename string

	// Title is the display title, when known.
	Title string

	// ChunkCount is the number of stored chunks for the document.
	ChunkCount int
}
