package driving

import (
	"context"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// Segment is one pre-extracted piece of a source document, as produced
// by the external PDF extraction pipeline.
type Segment struct {
	// Filename is the originating document's file name.
	Filename string `json:"filename"`

	// Page is the 1-based page number, 0 when unknown.
	Page int `json:"page"`

	// Type is "text", "code", or "image".
	Type string `json:"type"`

	// Text is the extracted content.
	Text string `json:"text"`

	// Author, Category, and MCPressURL are optional catalogue hints.
	Author     string `json:"author,omitempty"`
	Category   string `json:"category,omitempty"`
	MCPressURL string `json:"mc_press_url,omitempty"`
}

// IngestService chunks, embeds, and indexes extracted segments.
type IngestService interface {
	// Ingest stores the segments in the active index and returns the
	// number of chunks written.
	Ingest(ctx context.Context, segments []Segment) (int, error)

	// List returns a summary per indexed document.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Delete removes every chunk for the named file.
	Delete(ctx context.Context, filename string) error
}
