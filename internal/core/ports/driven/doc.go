// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorIndex: Chunk persistence and nearest-neighbour search. Either a
//     true vector backend (pgvector, chromem) or the lexical fallback.
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Required by true-vector
//     backends, unused by the lexical fallback.
//   - LLMService: Language model operations. Without it, only raw search is
//     available; the chat command is disabled.
//   - EnrichmentStore: Book/author metadata lookups. Without it, citations
//     fall back to chunk metadata.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
