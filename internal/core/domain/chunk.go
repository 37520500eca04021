package domain

import (
	"strconv"
	"strings"
)

// ChunkType classifies the kind of content a chunk was extracted from.
type ChunkType string

const (
	// ChunkTypeText is plain prose extracted from a document page.
	ChunkTypeText ChunkType = "text"

	// ChunkTypeCode is a source code listing.
	ChunkTypeCode ChunkType = "code"

	// ChunkTypeImage is OCR output from an embedded image.
	ChunkTypeImage ChunkType = "image"
)

// PageUnknown is the page label used when no page information is available.
const PageUnknown = "N/A"

// ChunkMetadata carries provenance for a chunk. Filename is always set;
// the remaining fields are optional and default to their zero values.
type ChunkMetadata struct {
	// Filename is the source document's file name.
	Filename string

	// Page is the 1-based page label, or empty when unknown.
	Page string

	// PageNumber is an alternative numeric page field, set by some
	// extractors instead of Page.
	PageNumber *int

	// Type classifies the chunk content.
	Type ChunkType

	// Author is the author name recorded at ingestion, if any.
	Author string

	// Category is the catalogue category, if any.
	Category string

	// MCPressURL is the store page for the owning book, if any.
	MCPressURL string

	// Extra holds extractor-specific key-value pairs.
	Extra map[string]string
}

// PageLabel resolves the page display value using the fallback chain
// Page, then PageNumber, then PageUnknown.
func (m ChunkMetadata) PageLabel() string {
	if m.Page != "" {
		return m.Page
	}
	if m.PageNumber != nil {
		return strconv.Itoa(*m.PageNumber)
	}
	return PageUnknown
}

// Chunk represents a retrievable unit of extracted document content.
// Chunks are created at ingestion time and are immutable afterwards,
// except for metadata corrections. They are deleted by filename cascade
// when the owning document is removed.
type Chunk struct {
	// ID is the unique identifier, stable per (document, position).
	ID string

	// Content is the chunk text. Empty chunks are never stored.
	Content string

	// Embedding is the vector representation, with dimension fixed
	// by the embedding model.
	Embedding []float32

	// Metadata carries provenance.
	Metadata ChunkMetadata
}

// Validate checks the chunk is storable.
func (c Chunk) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrInvalidInput
	}
	if c.Metadata.Filename == "" {
		return ErrInvalidInput
	}
	return nil
}
