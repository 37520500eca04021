package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// mockEnrichmentStore implements driven.EnrichmentStore for testing.
type mockEnrichmentStore struct {
	records    map[string]*domain.DocumentRecord
	authors    map[int64][]domain.Author
	lookupErr  map[string]error
	authorsErr error
}

func (m *mockEnrichmentStore) FindDocumentByFilename(_ context.Context, filename string) (*domain.DocumentRecord, error) {
	if err, ok := m.lookupErr[filename]; ok {
		return nil, err
	}
	record, ok := m.records[filename]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (m *mockEnrichmentStore) FindAuthorsForDocument(_ context.Context, bookID int64) ([]domain.Author, error) {
	if m.authorsErr != nil {
		return nil, m.authorsErr
	}
	return m.authors[bookID], nil
}

func (m *mockEnrichmentStore) Close() error { return nil }

func manualResult(page string, distance float64) domain.SearchResult {
	return domain.SearchResult{
		Content: "chunk content",
		Metadata: domain.ChunkMetadata{
			Filename: "manual.pdf",
			Page:     page,
			Type:     domain.ChunkTypeText,
		},
		Distance: distance,
	}
}

// TestSourceFormatter_Dedup tests first-occurrence-wins deduplication
func TestSourceFormatter_Dedup(t *testing.T) {
	f := NewSourceFormatter(nil)
	results := []domain.SearchResult{
		manualResult("12", 0.2),
		manualResult("12", 0.4), // duplicate key, different chunk
		manualResult("13", 0.3),
	}

	got := f.Format(context.Background(), results)

	require.Len(t, got, 2)
	assert.Equal(t, "12", got[0].Page)
	assert.InDelta(t, 0.2, got[0].Distance, 1e-9) // first occurrence's distance
	assert.Equal(t, "13", got[1].Page)

	keys := map[string]bool{}
	for _, s := range got {
		assert.False(t, keys[s.DedupKey()], "duplicate key %q", s.DedupKey())
		keys[s.DedupKey()] = true
	}
}

// TestSourceFormatter_DedupKeyFallback tests the page fallback chain in
// the dedup key
func TestSourceFormatter_DedupKeyFallback(t *testing.T) {
	f := NewSourceFormatter(nil)
	twelve := 12

	metaPage := manualResult("12", 0.2)
	metaPageNumber := domain.SearchResult{
		Metadata: domain.ChunkMetadata{Filename: "manual.pdf", PageNumber: &twelve, Type: domain.ChunkTypeText},
		Distance: 0.5,
	}

	got := f.Format(context.Background(), []domain.SearchResult{metaPage, metaPageNumber})

	// Both resolve to page "12" and collapse to one citation.
	require.Len(t, got, 1)
	assert.Equal(t, "12", got[0].Page)
}

// TestSourceFormatter_Enrichment tests the happy path
func TestSourceFormatter_Enrichment(t *testing.T) {
	store := &mockEnrichmentStore{
		records: map[string]*domain.DocumentRecord{
			"manual.pdf": {
				ID:           7,
				Title:        "Subfiles in Free-Format RPG",
				MCPressURL:   "https://mc-store.example/subfiles",
				DocumentType: "book",
			},
		},
		authors: map[int64][]domain.Author{
			7: {
				{ID: 1, Name: "Kevin Vandever", Order: 0},
				{ID: 2, Name: "Second Author", Order: 1},
			},
		},
	}
	f := NewSourceFormatter(store)

	got := f.Format(context.Background(), []domain.SearchResult{manualResult("12", 0.2)})

	require.Len(t, got, 1)
	assert.Equal(t, "Subfiles in Free-Format RPG", got[0].Title)
	assert.Equal(t, "Kevin Vandever, Second Author", got[0].Author)
	require.Len(t, got[0].Authors, 2)
	assert.Equal(t, "https://mc-store.example/subfiles", got[0].MCPressURL)
	assert.Equal(t, "book", got[0].DocumentType)
}

// TestSourceFormatter_LegacyAuthorFallback tests the single-string
// author column path
func TestSourceFormatter_LegacyAuthorFallback(t *testing.T) {
	store := &mockEnrichmentStore{
		records: map[string]*domain.DocumentRecord{
			"manual.pdf": {ID: 7, Title: "Some Title", LegacyAuthor: "Ted Holt"},
		},
	}
	f := NewSourceFormatter(store)

	got := f.Format(context.Background(), []domain.SearchResult{manualResult("12", 0.2)})

	require.Len(t, got, 1)
	assert.Equal(t, "Ted Holt", got[0].Author)
}

// TestSourceFormatter_LookupFailureIsolation tests that one failing
// filename does not break the rest
func TestSourceFormatter_LookupFailureIsolation(t *testing.T) {
	store := &mockEnrichmentStore{
		records: map[string]*domain.DocumentRecord{
			"good.pdf": {ID: 1, Title: "Good Book", LegacyAuthor: "An Author"},
		},
		lookupErr: map[string]error{
			"bad.pdf": errors.New("connection refused"),
		},
	}
	f := NewSourceFormatter(store)

	bad := domain.SearchResult{
		Metadata: domain.ChunkMetadata{Filename: "bad.pdf", Page: "1", Type: domain.ChunkTypeText, Author: "Meta Author"},
		Distance: 0.1,
	}
	good := domain.SearchResult{
		Metadata: domain.ChunkMetadata{Filename: "good.pdf", Page: "2", Type: domain.ChunkTypeText},
		Distance: 0.2,
	}

	got := f.Format(context.Background(), []domain.SearchResult{bad, good})

	require.Len(t, got, 2)
	// Failing entry falls back to chunk metadata.
	assert.Equal(t, "bad.pdf", got[0].Filename)
	assert.Equal(t, unknownField, got[0].Title)
	assert.Equal(t, "Meta Author", got[0].Author)
	// The other entry is still enriched.
	assert.Equal(t, "Good Book", got[1].Title)
	assert.Equal(t, "An Author", got[1].Author)
}

// TestSourceFormatter_AuthorsFailure tests degradation when only the
// author relation fails
func TestSourceFormatter_AuthorsFailure(t *testing.T) {
	store := &mockEnrichmentStore{
		records: map[string]*domain.DocumentRecord{
			"manual.pdf": {ID: 7, Title: "Some Title", LegacyAuthor: "Legacy Name"},
		},
		authorsErr: errors.New("relation missing"),
	}
	f := NewSourceFormatter(store)

	got := f.Format(context.Background(), []domain.SearchResult{manualResult("12", 0.2)})

	require.Len(t, got, 1)
	assert.Equal(t, "Some Title", got[0].Title)
	assert.Equal(t, "Legacy Name", got[0].Author)
}

// TestSourceFormatter_NilStore tests metadata-only citations
func TestSourceFormatter_NilStore(t *testing.T) {
	f := NewSourceFormatter(nil)
	r := domain.SearchResult{
		Metadata: domain.ChunkMetadata{
			Filename:   "manual.pdf",
			Page:       "12",
			Type:       domain.ChunkTypeText,
			Author:     "Meta Author",
			MCPressURL: "https://mc-store.example/book",
			Extra:      map[string]string{"title": "Metadata Title"},
		},
		Distance: 0.2,
	}

	got := f.Format(context.Background(), []domain.SearchResult{r})

	require.Len(t, got, 1)
	assert.Equal(t, "Metadata Title", got[0].Title)
	assert.Equal(t, "Meta Author", got[0].Author)
	assert.Equal(t, "https://mc-store.example/book", got[0].MCPressURL)
}

// TestSourceFormatter_UnknownFallback tests the literal Unknown fallback
func TestSourceFormatter_UnknownFallback(t *testing.T) {
	f := NewSourceFormatter(nil)

	got := f.Format(context.Background(), []domain.SearchResult{manualResult("12", 0.2)})

	require.Len(t, got, 1)
	assert.Equal(t, unknownField, got[0].Title)
	assert.Equal(t, unknownField, got[0].Author)
}

// TestSourceFormatter_Empty tests empty input
func TestSourceFormatter_Empty(t *testing.T) {
	f := NewSourceFormatter(nil)

	assert.Empty(t, f.Format(context.Background(), nil))
}

// TestSourceFormatter_OrderStable tests first-occurrence output order
func TestSourceFormatter_OrderStable(t *testing.T) {
	f := NewSourceFormatter(nil)
	results := []domain.SearchResult{
		manualResult("3", 0.1),
		manualResult("1", 0.2),
		manualResult("3", 0.3),
		manualResult("2", 0.4),
	}

	got := f.Format(context.Background(), results)

	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].Page)
	assert.Equal(t, "1", got[1].Page)
	assert.Equal(t, "2", got[2].Page)
}
