package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// stubEmbedder returns a fixed query vector.
type stubEmbedder struct {
	vector []float32
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vector) }

func (s *stubEmbedder) ModelName() string { return "stub" }

func (s *stubEmbedder) Ping(_ context.Context) error { return nil }

func (s *stubEmbedder) Close() error { return nil }

func testChunk(id, filename, page string, v []float32) domain.Chunk {
	return domain.Chunk{
		ID:        id,
		Content:   "content " + id,
		Embedding: v,
		Metadata: domain.ChunkMetadata{
			Filename: filename,
			Page:     page,
			Type:     domain.ChunkTypeText,
		},
	}
}

// TestStore_AddSearch tests the round trip with cosine ranking
func TestStore_AddSearch(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir(), &stubEmbedder{vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, []domain.Chunk{
		testChunk("c1", "a.pdf", "1", []float32{1, 0, 0}),
		testChunk("c2", "a.pdf", "2", []float32{0, 1, 0}),
	}))

	results, err := store.Search(ctx, "query", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "content c1", results[0].Content)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-4)
	assert.Equal(t, "a.pdf", results[0].Metadata.Filename)
	assert.Equal(t, "1", results[0].Metadata.Page)
	assert.True(t, results[0].TrueVector)
	assert.Greater(t, results[1].Distance, results[0].Distance)
}

// TestStore_Search_CapsAtCollectionSize tests that n larger than the
// collection does not error
func TestStore_Search_CapsAtCollectionSize(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir(), &stubEmbedder{vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, []domain.Chunk{
		testChunk("c1", "a.pdf", "1", []float32{1, 0, 0}),
	}))

	results, err := store.Search(ctx, "query", 10)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

// TestStore_Search_Empty tests searching an empty collection
func TestStore_Search_Empty(t *testing.T) {
	store, err := NewStore(t.TempDir(), &stubEmbedder{vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestStore_ListDelete tests the manifest-backed listing and cascade
func TestStore_ListDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir(), &stubEmbedder{vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, []domain.Chunk{
		testChunk("c1", "a.pdf", "1", []float32{1, 0, 0}),
		testChunk("c2", "a.pdf", "2", []float32{0, 1, 0}),
		testChunk("c3", "b.pdf", "1", []float32{0, 0, 1}),
	}))

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a.pdf", summaries[0].Filename)
	assert.Equal(t, 2, summaries[0].ChunkCount)

	require.NoError(t, store.Delete(ctx, "a.pdf"))

	summaries, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "b.pdf", summaries[0].Filename)
}

// TestStore_Add_RejectsMissingEmbedding tests chunk validation
func TestStore_Add_RejectsMissingEmbedding(t *testing.T) {
	store, err := NewStore(t.TempDir(), &stubEmbedder{vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	err = store.Add(context.Background(), []domain.Chunk{
		{ID: "bad", Content: "text", Metadata: domain.ChunkMetadata{Filename: "a.pdf"}},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestMetadataRoundTrip tests the flatten/restore pair
func TestMetadataRoundTrip(t *testing.T) {
	seven := 7
	meta := domain.ChunkMetadata{
		Filename:   "a.pdf",
		PageNumber: &seven,
		Type:       domain.ChunkTypeCode,
		Author:     "An Author",
		Category:   "RPG",
		MCPressURL: "https://mc-store.example/a",
		Extra:      map[string]string{"title": "A Title"},
	}

	got := decodeMetadata(encodeMetadata(meta))

	assert.Equal(t, meta, got)
}
