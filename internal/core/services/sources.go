package services

import (
	"context"
	"strings"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/logger"
)

// unknownField is the display fallback when neither the enrichment store
// nor the chunk metadata knows a value.
const unknownField = "Unknown"

// SourceFormatter turns filtered results into deduplicated, enriched
// citations.
//
// Enrichment failures of any kind are recovered locally: a broken
// catalogue lookup must never break the chat response, so every failure
// branch falls back to the metadata already present on the chunk.
type SourceFormatter struct {
	enrichment driven.EnrichmentStore
}

// NewSourceFormatter creates a formatter. The enrichment store may be
// nil, in which case citations are built from chunk metadata alone.
func NewSourceFormatter(enrichment driven.EnrichmentStore) *SourceFormatter {
	return &SourceFormatter{enrichment: enrichment}
}

// Format deduplicates results by (filename, page) keeping the first
// occurrence, enriches each survivor from the catalogue, and returns the
// citations in first-occurrence order. It never returns an error.
func (f *SourceFormatter) Format(ctx context.Context, results []domain.SearchResult) []domain.Source {
	sources := make([]domain.Source, 0, len(results))
	seen := make(map[string]bool, len(results))

	for _, r := range results {
		src := domain.Source{
			Filename: r.Metadata.Filename,
			Page:     r.PageLabel(),
			Type:     r.Metadata.Type,
			Distance: r.Distance,
		}
		if seen[src.DedupKey()] {
			continue
		}
		seen[src.DedupKey()] = true

		sources = append(sources, f.enrich(ctx, src, r.Metadata))
	}

	return sources
}

// enrich fills title, authors, and URLs from the catalogue, falling
// back to chunk metadata when the lookup does not succeed.
func (f *SourceFormatter) enrich(ctx context.Context, src domain.Source, meta domain.ChunkMetadata) domain.Source {
	record, ok := f.lookup(ctx, src.Filename)
	if !ok {
		return fillFromMetadata(src, meta)
	}

	src.Title = record.Title
	src.MCPressURL = record.MCPressURL
	src.ArticleURL = record.ArticleURL
	src.DocumentType = record.DocumentType

	authors, err := f.enrichment.FindAuthorsForDocument(ctx, record.ID)
	if err != nil {
		logger.Warn("Source enrichment: authors for %q: %v", src.Filename, err)
		authors = nil
	}
	if len(authors) > 0 {
		src.Authors = authors
		names := make([]string, len(authors))
		for i, a := range authors {
			names[i] = a.Name
		}
		src.Author = strings.Join(names, ", ")
	} else if record.LegacyAuthor != "" {
		src.Author = record.LegacyAuthor
		src.Authors = []domain.Author{{Name: record.LegacyAuthor}}
	}

	// The catalogue row may itself be sparse.
	return fillFromMetadata(src, meta)
}

// lookup fetches the catalogue record for a filename. The boolean result
// expresses the graceful-degradation branch: false covers a missing
// store, a missing record, and any store failure alike.
func (f *SourceFormatter) lookup(ctx context.Context, filename string) (*domain.DocumentRecord, bool) {
	if f.enrichment == nil || filename == "" {
		return nil, false
	}

	record, err := f.enrichment.FindDocumentByFilename(ctx, filename)
	if err != nil {
		logger.Warn("Source enrichment: lookup %q: %v", filename, err)
		return nil, false
	}
	if record == nil {
		return nil, false
	}
	return record, true
}

// fillFromMetadata completes any field the enrichment pass left empty
// using chunk metadata, with "Unknown" as the last resort for the
// display fields.
func fillFromMetadata(src domain.Source, meta domain.ChunkMetadata) domain.Source {
	if src.Title == "" {
		if t := meta.Extra["title"]; t != "" {
			src.Title = t
		} else {
			src.Title = unknownField
		}
	}
	if src.Author == "" {
		if meta.Author != "" {
			src.Author = meta.Author
			src.Authors = []domain.Author{{Name: meta.Author}}
		} else {
			src.Author = unknownField
		}
	}
	if src.MCPressURL == "" {
		src.MCPressURL = meta.MCPressURL
	}
	return src
}
