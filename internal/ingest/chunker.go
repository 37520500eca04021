// Package ingest turns pre-extracted document segments into embedded,
// indexed chunks.
package ingest

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker splits segment text into fixed-size chunks with overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a new chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split turns one extracted segment into chunks carrying the segment's
// provenance. Short segments produce a single chunk; long ones are cut
// into fixed-size windows with overlap. Empty text produces nothing.
func (c *Chunker) Split(seg driving.Segment) []domain.Chunk {
	if seg.Text == "" {
		return nil
	}

	meta := metadataFor(seg)

	// Window over runes, not bytes, so multibyte characters are never
	// split mid-sequence.
	text := []rune(seg.Text)
	contentLen := len(text)

	estimatedChunks := (contentLen / (c.chunkSize - c.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	start := 0
	for start < contentLen {
		end := start + c.chunkSize
		if end > contentLen {
			end = contentLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			Content:  string(text[start:end]),
			Metadata: meta,
		})

		start += c.chunkSize - c.overlap
	}

	return chunks
}

// metadataFor maps segment fields onto chunk provenance. An unset or
// unrecognised type defaults to text.
func metadataFor(seg driving.Segment) domain.ChunkMetadata {
	chunkType := domain.ChunkType(seg.Type)
	switch chunkType {
	case domain.ChunkTypeText, domain.ChunkTypeCode, domain.ChunkTypeImage:
	default:
		chunkType = domain.ChunkTypeText
	}

	meta := domain.ChunkMetadata{
		Filename:   seg.Filename,
		Type:       chunkType,
		Author:     seg.Author,
		Category:   seg.Category,
		MCPressURL: seg.MCPressURL,
	}
	if seg.Page > 0 {
		meta.Page = strconv.Itoa(seg.Page)
	}
	return meta
}
