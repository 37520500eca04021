package ingest

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

// mockIndex records added chunks.
type mockIndex struct {
	added     []domain.Chunk
	addErr    error
	deleted   []string
	summaries []domain.DocumentSummary
}

func (m *mockIndex) Search(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	return nil, nil
}

func (m *mockIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, chunks...)
	return nil
}

func (m *mockIndex) List(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.summaries, nil
}

func (m *mockIndex) Delete(_ context.Context, filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

func (m *mockIndex) TrueVector() bool { return true }

func (m *mockIndex) Close() error { return nil }

// mockEmbedder returns a constant vector per text.
type mockEmbedder struct {
	batches [][]string
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 2 }

func (m *mockEmbedder) ModelName() string { return "mock" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

// TestService_Ingest tests chunking, embedding, and indexing of segments
func TestService_Ingest(t *testing.T) {
	index := &mockIndex{}
	embedder := &mockEmbedder{}
	svc := NewService(index, embedder, NewChunker())

	count, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "a.pdf", Page: 3, Type: "text", Text: "RPG subfile handling"},
		{Filename: "a.pdf", Page: 4, Type: "code", Text: "dcl-s msg char(50);"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, index.added, 2)

	first := index.added[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "a.pdf", first.Metadata.Filename)
	assert.Equal(t, "3", first.Metadata.Page)
	assert.Equal(t, domain.ChunkTypeText, first.Metadata.Type)
	assert.Equal(t, []float32{1, 0}, first.Embedding)
	assert.Equal(t, domain.ChunkTypeCode, index.added[1].Metadata.Type)
}

// TestService_Ingest_SplitsLongSegments tests the overlap chunker path
func TestService_Ingest_SplitsLongSegments(t *testing.T) {
	index := &mockIndex{}
	svc := NewService(index, &mockEmbedder{}, NewChunker(WithChunkSize(100), WithOverlap(20)))

	long := make([]byte, 250)
	for i := range long {
		long[i] = 'a'
	}

	count, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "a.pdf", Page: 1, Text: string(long)},
	})

	require.NoError(t, err)
	assert.Greater(t, count, 1)
	for _, c := range index.added {
		assert.LessOrEqual(t, len(c.Content), 100)
		assert.Equal(t, "a.pdf", c.Metadata.Filename)
	}
}

// TestService_Ingest_SkipsEmptySegments tests that blank text is dropped
func TestService_Ingest_SkipsEmptySegments(t *testing.T) {
	index := &mockIndex{}
	svc := NewService(index, &mockEmbedder{}, nil)

	count, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "a.pdf", Page: 1, Text: "   "},
		{Filename: "a.pdf", Page: 2, Text: "real content"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestService_Ingest_MissingFilename tests segment validation
func TestService_Ingest_MissingFilename(t *testing.T) {
	svc := NewService(&mockIndex{}, &mockEmbedder{}, nil)

	_, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "", Page: 1, Text: "content"},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestService_Ingest_EmbeddingError tests embed failure propagation
func TestService_Ingest_EmbeddingError(t *testing.T) {
	embedErr := errors.New("model offline")
	svc := NewService(&mockIndex{}, &mockEmbedder{err: embedErr}, nil)

	_, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "a.pdf", Page: 1, Text: "content"},
	})

	assert.ErrorIs(t, err, embedErr)
}

// TestService_Ingest_NoEmbedder tests the lexical-only path
func TestService_Ingest_NoEmbedder(t *testing.T) {
	index := &mockIndex{}
	svc := NewService(index, nil, nil)

	count, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "a.pdf", Page: 1, Text: "content"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Nil(t, index.added[0].Embedding)
}

// TestService_Ingest_NilIndex tests the unavailable index guard
func TestService_Ingest_NilIndex(t *testing.T) {
	svc := NewService(nil, &mockEmbedder{}, nil)

	_, err := svc.Ingest(context.Background(), []driving.Segment{
		{Filename: "a.pdf", Page: 1, Text: "content"},
	})

	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

// TestService_Delete tests delete forwarding and validation
func TestService_Delete(t *testing.T) {
	index := &mockIndex{}
	svc := NewService(index, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "a.pdf"))
	assert.Equal(t, []string{"a.pdf"}, index.deleted)

	err := svc.Delete(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestService_List tests list forwarding
func TestService_List(t *testing.T) {
	index := &mockIndex{summaries: []domain.DocumentSummary{{Filename: "a.pdf", ChunkCount: 2}}}
	svc := NewService(index, nil, nil)

	summaries, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "a.pdf", summaries[0].Filename)
}

// TestChunker_Split_Overlap tests window boundaries
func TestChunker_Split_Overlap(t *testing.T) {
	c := NewChunker(WithChunkSize(10), WithOverlap(4))

	chunks := c.Split(driving.Segment{Filename: "a.pdf", Text: "abcdefghijklmnop"})

	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdefghij", chunks[0].Content)
	assert.Equal(t, "ghijklmnop", chunks[1].Content)
	assert.Equal(t, "mnop", chunks[2].Content)
}

// TestChunker_Split_Multibyte tests that windows land on rune
// boundaries, not byte offsets
func TestChunker_Split_Multibyte(t *testing.T) {
	c := NewChunker(WithChunkSize(4), WithOverlap(1))

	// Each rune is 3 bytes in UTF-8; byte-offset slicing would cut
	// mid-sequence and produce invalid strings.
	chunks := c.Split(driving.Segment{Filename: "a.pdf", Text: "日本語のテキスト"})

	require.Len(t, chunks, 3)
	assert.Equal(t, "日本語の", chunks[0].Content)
	assert.Equal(t, "のテキス", chunks[1].Content)
	assert.Equal(t, "スト", chunks[2].Content)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Content))
	}
}

// TestChunker_Split_Empty tests that empty text yields no chunks
func TestChunker_Split_Empty(t *testing.T) {
	c := NewChunker()

	assert.Empty(t, c.Split(driving.Segment{Filename: "a.pdf"}))
}

// TestChunker_Split_UnknownType tests the chunk type default
func TestChunker_Split_UnknownType(t *testing.T) {
	c := NewChunker()

	chunks := c.Split(driving.Segment{Filename: "a.pdf", Type: "table", Text: "x y z"})

	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkTypeText, chunks[0].Metadata.Type)
	assert.Equal(t, "", chunks[0].Metadata.Page)
}
