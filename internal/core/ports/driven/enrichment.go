package driven

import (
	"context"

	"github.com/mcpress/bookchat/internal/core/domain"
)

// EnrichmentStore looks up book-level metadata for citations.
// Backed by the relational catalogue database.
//
// Callers must treat every failure as recoverable: the source formatter
// falls back to chunk metadata rather than surfacing enrichment errors.
type EnrichmentStore interface {
	// FindDocumentByFilename returns the catalogue record owning the
	// file, or domain.ErrNotFound when the file is not catalogued.
	FindDocumentByFilename(ctx context.Context, filename string) (*domain.DocumentRecord, error)

	// FindAuthorsForDocument returns the book's authors in listing order.
	FindAuthorsForDocument(ctx context.Context, bookID int64) ([]domain.Author, error)

	// Close releases resources.
	Close() error
}
