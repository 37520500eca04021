package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// stubEmbedder embeds by table lookup so distances are predictable.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = s.Embed(ctx, t)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

func (s *stubEmbedder) ModelName() string { return "stub" }

func (s *stubEmbedder) Ping(_ context.Context) error { return nil }

func (s *stubEmbedder) Close() error { return nil }

func chunkWithVector(id, filename string, v []float32) domain.Chunk {
	return domain.Chunk{
		ID:        id,
		Content:   "content of " + id,
		Embedding: v,
		Metadata:  domain.ChunkMetadata{Filename: filename, Page: "1", Type: domain.ChunkTypeText},
	}
}

// TestVectorIndex_Search tests exact cosine ranking
func TestVectorIndex_Search(t *testing.T) {
	ctx := context.Background()
	index := NewVectorIndex(&stubEmbedder{})

	require.NoError(t, index.Add(ctx, []domain.Chunk{
		chunkWithVector("far", "a.pdf", []float32{0, 1, 0}),      // orthogonal, distance 1
		chunkWithVector("near", "a.pdf", []float32{1, 0, 0}),     // identical, distance 0
		chunkWithVector("mid", "a.pdf", []float32{1, 1, 0}),      // 45 degrees
		chunkWithVector("opposite", "a.pdf", []float32{-1, 0, 0}), // distance 2
	}))

	results, err := index.Search(ctx, "query", 3)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "content of near", results[0].Content)
	assert.Equal(t, "content of mid", results[1].Content)
	assert.Equal(t, "content of far", results[2].Content)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.InDelta(t, 1.0, results[2].Distance, 1e-6)
	assert.True(t, results[0].TrueVector)
}

// TestVectorIndex_Add_RejectsEmptyContent tests chunk validation
func TestVectorIndex_Add_RejectsEmptyContent(t *testing.T) {
	index := NewVectorIndex(&stubEmbedder{})

	err := index.Add(context.Background(), []domain.Chunk{
		{ID: "bad", Content: "   ", Metadata: domain.ChunkMetadata{Filename: "a.pdf"}},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestVectorIndex_ListAndDelete tests the filename cascade
func TestVectorIndex_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	index := NewVectorIndex(&stubEmbedder{})

	require.NoError(t, index.Add(ctx, []domain.Chunk{
		chunkWithVector("a1", "a.pdf", []float32{1, 0, 0}),
		chunkWithVector("a2", "a.pdf", []float32{0, 1, 0}),
		chunkWithVector("b1", "b.pdf", []float32{0, 0, 1}),
	}))

	summaries, err := index.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a.pdf", summaries[0].Filename)
	assert.Equal(t, 2, summaries[0].ChunkCount)

	require.NoError(t, index.Delete(ctx, "a.pdf"))

	summaries, err = index.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "b.pdf", summaries[0].Filename)
}

// TestVectorIndex_Delete_Missing tests that unknown filenames error like
// the persistent backends do
func TestVectorIndex_Delete_Missing(t *testing.T) {
	ctx := context.Background()
	index := NewVectorIndex(&stubEmbedder{})

	require.NoError(t, index.Add(ctx, []domain.Chunk{
		chunkWithVector("a1", "a.pdf", []float32{1, 0, 0}),
	}))

	err := index.Delete(ctx, "missing.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The indexed document is untouched.
	summaries, err := index.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
}

// TestVectorIndex_Search_NilEmbedder tests the unavailable embedder path
func TestVectorIndex_Search_NilEmbedder(t *testing.T) {
	index := NewVectorIndex(nil)

	_, err := index.Search(context.Background(), "query", 5)

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// TestCosineDistance tests edge cases of the distance function
func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, cosineDistance([]float32{1, 2}, []float32{1, 2}), 1e-9)
	assert.InDelta(t, 2.0, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, domain.MaxDistance, cosineDistance(nil, []float32{1}))
	assert.Equal(t, domain.MaxDistance, cosineDistance([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, domain.MaxDistance, cosineDistance([]float32{1}, []float32{1, 2}))
}
