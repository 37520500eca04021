package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpress/bookchat/internal/core/domain"
)

func newTestFilter() *RelevanceFilter {
	return NewRelevanceFilter(DefaultConfig().Relevance)
}

func resultsWithDistances(distances ...float64) []domain.SearchResult {
	results := make([]domain.SearchResult, len(distances))
	for i, d := range distances {
		results[i] = domain.SearchResult{
			Content:  "chunk",
			Metadata: domain.ChunkMetadata{Filename: "manual.pdf"},
			Distance: d,
		}
	}
	return results
}

// TestRelevanceFilter_ThresholdFor tests query classification
func TestRelevanceFilter_ThresholdFor(t *testing.T) {
	f := newTestFilter()

	tests := []struct {
		name      string
		query     string
		wantT     float64
		wantClass QueryClass
	}{
		{"domain keyword", "What is a subfile?", DefaultDomainThreshold, QueryClassTechnical},
		{"domain keyword rpg", "RPG free-form declarations", DefaultDomainThreshold, QueryClassTechnical},
		{"how-to", "how to read a flat record", DefaultHowToThreshold, QueryClassHowTo},
		{"code sample", "give me a sample of error trapping", DefaultHowToThreshold, QueryClassHowTo},
		{"configuration", "configure the connection parameter", DefaultConfigThreshold, QueryClassConfig},
		{"setup", "set up the development tools", DefaultConfigThreshold, QueryClassConfig},
		{"quoted phrase", `find "exact phrase" mentions`, DefaultQuotedThreshold, QueryClassQuoted},
		{"baseline", "when was the book published", DefaultBaselineThreshold, QueryClassBaseline},
		{"empty query", "", DefaultBaselineThreshold, QueryClassBaseline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, class := f.ThresholdFor(tt.query)
			assert.InDelta(t, tt.wantT, got, 1e-9)
			assert.Equal(t, tt.wantClass, class)
		})
	}
}

// TestRelevanceFilter_PriorityOrder tests that earlier classes win when
// a query matches several
func TestRelevanceFilter_PriorityOrder(t *testing.T) {
	f := newTestFilter()

	// Domain keyword beats how-to phrasing.
	got, class := f.ThresholdFor("how to load a subfile")
	assert.InDelta(t, DefaultDomainThreshold, got, 1e-9)
	assert.Equal(t, QueryClassTechnical, class)

	// How-to beats configuration phrasing.
	got, class = f.ThresholdFor("how to install the compiler")
	assert.InDelta(t, DefaultHowToThreshold, got, 1e-9)
	assert.Equal(t, QueryClassHowTo, class)

	// Configuration beats quoting.
	got, class = f.ThresholdFor(`configure "exact phrase" handling`)
	assert.InDelta(t, DefaultConfigThreshold, got, 1e-9)
	assert.Equal(t, QueryClassConfig, class)
}

// TestRelevanceFilter_ThresholdPurity tests that the threshold never
// depends on the candidate set
func TestRelevanceFilter_ThresholdPurity(t *testing.T) {
	f := newTestFilter()
	query := "What is a subfile?"

	want, _ := f.ThresholdFor(query)
	f.Filter(resultsWithDistances(0.1, 1.9), query)
	f.Filter(nil, query)
	got, _ := f.ThresholdFor(query)

	assert.Equal(t, want, got)
}

// TestRelevanceFilter_Filter_DomainQuery reproduces the reference
// scenario: permissive threshold, 0.71 excluded at 0.70
func TestRelevanceFilter_Filter_DomainQuery(t *testing.T) {
	f := newTestFilter()
	raw := resultsWithDistances(0.2, 0.5, 0.69, 0.71, 0.9, 1.1, 1.4, 1.6, 1.8, 1.95)

	got := f.Filter(raw, "What is a subfile?")

	require.Len(t, got, 3)
	assert.InDelta(t, 0.2, got[0].Distance, 1e-9)
	assert.InDelta(t, 0.5, got[1].Distance, 1e-9)
	assert.InDelta(t, 0.69, got[2].Distance, 1e-9)
}

// TestRelevanceFilter_Filter_SortsAscending tests the sort invariant
func TestRelevanceFilter_Filter_SortsAscending(t *testing.T) {
	f := newTestFilter()
	raw := resultsWithDistances(0.6, 0.1, 0.4, 0.3, 0.2)

	got := f.Filter(raw, "anything at all")

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

// TestRelevanceFilter_Filter_StableTies tests that equal distances keep
// retrieval order
func TestRelevanceFilter_Filter_StableTies(t *testing.T) {
	f := newTestFilter()
	raw := resultsWithDistances(0.3, 0.3, 0.3)
	raw[0].Content = "first"
	raw[1].Content = "second"
	raw[2].Content = "third"

	got := f.Filter(raw, "What is a subfile?")

	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)
}

// TestRelevanceFilter_Filter_Cap tests the MaxSources cap invariant
func TestRelevanceFilter_Filter_Cap(t *testing.T) {
	f := newTestFilter()
	distances := make([]float64, 20)
	for i := range distances {
		distances[i] = 0.01 * float64(i)
	}

	got := f.Filter(resultsWithDistances(distances...), "What is a subfile?")

	assert.LessOrEqual(t, len(got), DefaultMaxSources)
	assert.Len(t, got, DefaultMaxSources)
}

// TestRelevanceFilter_Filter_Idempotent tests the stable fixed point
func TestRelevanceFilter_Filter_Idempotent(t *testing.T) {
	f := newTestFilter()
	query := "What is a subfile?"
	raw := resultsWithDistances(0.5, 0.1, 0.69, 0.3, 0.71, 0.2, 0.6, 0.65, 0.05, 0.4)

	once := f.Filter(raw, query)
	twice := f.Filter(once, query)

	assert.Equal(t, once, twice)
}

// TestRelevanceFilter_Filter_EmptyInput tests that empty in means empty
// out, not an error
func TestRelevanceFilter_Filter_EmptyInput(t *testing.T) {
	f := newTestFilter()

	got := f.Filter(nil, "What is a subfile?")
	assert.Empty(t, got)

	got = f.Filter([]domain.SearchResult{}, "What is a subfile?")
	assert.Empty(t, got)
}

// TestRelevanceFilter_Filter_NoneSurvive tests the zero-survivor outcome
func TestRelevanceFilter_Filter_NoneSurvive(t *testing.T) {
	f := newTestFilter()

	got := f.Filter(resultsWithDistances(1.2, 1.5, 1.9), `"exact phrase"`)

	assert.Empty(t, got)
}

// TestRelevanceFilter_Filter_MalformedDistance tests that NaN and
// negative distances are excluded by thresholding
func TestRelevanceFilter_Filter_MalformedDistance(t *testing.T) {
	f := newTestFilter()
	raw := resultsWithDistances(0.1, math.NaN(), -0.5)

	got := f.Filter(raw, "What is a subfile?")

	require.Len(t, got, 1)
	assert.InDelta(t, 0.1, got[0].Distance, 1e-9)
}

// TestRelevanceFilter_CustomBaseline tests the configurable baseline
func TestRelevanceFilter_CustomBaseline(t *testing.T) {
	cfg := DefaultConfig().Relevance
	cfg.BaselineThreshold = 0.25
	f := NewRelevanceFilter(cfg)

	got := f.Filter(resultsWithDistances(0.2, 0.3), "plain question")

	require.Len(t, got, 1)
	assert.InDelta(t, 0.2, got[0].Distance, 1e-9)
}
