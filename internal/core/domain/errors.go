package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// The chat command cannot run without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. True-vector backends cannot embed queries without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates no vector index is configured.
	// Retrieval is disabled entirely without one.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrEnrichmentUnavailable indicates the enrichment store is not
	// configured. Citations fall back to chunk metadata.
	ErrEnrichmentUnavailable = errors.New("enrichment store unavailable")
)
