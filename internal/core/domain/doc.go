// Package domain defines the core business entities for bookchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A retrievable unit of extracted document content
//   - SearchResult: A scored nearest-neighbour hit from a vector index
//   - Source: A deduplicated, enriched citation for display
//   - DocumentRecord: Book-level metadata from the enrichment store
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
