package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
	"github.com/mcpress/bookchat/internal/logger"
)

// Ensure Service implements the interface.
var _ driving.IngestService = (*Service)(nil)

// embedBatchSize caps how many chunk texts go to the embedding service
// per request.
const embedBatchSize = 64

// Service chunks, embeds, and indexes extracted segments.
type Service struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	chunker  *Chunker
}

// NewService creates an ingest service. The embedder may be nil for
// lexical-only indexes; chunks are then stored without embeddings.
func NewService(index driven.VectorIndex, embedder driven.EmbeddingService, chunker *Chunker) *Service {
	if chunker == nil {
		chunker = NewChunker()
	}
	return &Service{
		index:    index,
		embedder: embedder,
		chunker:  chunker,
	}
}

// Ingest stores the segments in the active index and returns the
// number of chunks written.
func (s *Service) Ingest(ctx context.Context, segments []driving.Segment) (int, error) {
	if s.index == nil {
		return 0, domain.ErrVectorIndexUnavailable
	}

	var chunks []domain.Chunk
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			logger.Debug("Ingest: skipping empty segment %d (%s)", i, seg.Filename)
			continue
		}
		if seg.Filename == "" {
			return 0, fmt.Errorf("segment %d: %w: missing filename", i, domain.ErrInvalidInput)
		}
		chunks = append(chunks, s.chunker.Split(seg)...)
	}

	if len(chunks) == 0 {
		return 0, nil
	}
	logger.Info("Ingest: %d segments produced %d chunks", len(segments), len(chunks))

	if s.embedder != nil {
		if err := s.embed(ctx, chunks); err != nil {
			return 0, err
		}
	}

	if err := s.index.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("indexing chunks: %w", err)
	}
	return len(chunks), nil
}

// embed fills chunk embeddings in batches.
func (s *Service) embed(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		logger.Debug("Ingest: embedding batch %d-%d", start, end)
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding batch at %d: expected %d vectors, got %d",
				start, len(batch), len(vectors))
		}

		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
	}
	return nil
}

// List returns a summary per indexed document.
func (s *Service) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	return s.index.List(ctx)
}

// Delete removes every chunk for the named file.
func (s *Service) Delete(ctx context.Context, filename string) error {
	if s.index == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if filename == "" {
		return fmt.Errorf("%w: missing filename", domain.ErrInvalidInput)
	}
	return s.index.Delete(ctx, filename)
}
