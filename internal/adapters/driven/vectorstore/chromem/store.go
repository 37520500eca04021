// Package chromem provides an embedded persistent vector index backed
// by chromem-go. It is the zero-infrastructure true-vector backend:
// cosine similarity without a database server.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorIndex = (*Store)(nil)

// DefaultCollection is the collection name for indexed book chunks.
const DefaultCollection = "book_chunks"

// Store is a chromem-go backed vector index.
//
// chromem has no document-enumeration API, so the store keeps a chunk
// count per filename in a manifest file next to the database. The
// manifest only serves List; search and delete go through chromem.
type Store struct {
	mu           sync.RWMutex
	db           *chromem.DB
	collection   *chromem.Collection
	embedder     driven.EmbeddingService
	manifestPath string
	manifest     map[string]int
}

// NewStore opens (or creates) a persistent database at path.
// The collection uses cosine space, so similarity is in [0, 1] and the
// derived distance is a true cosine distance.
func NewStore(path string, embedder driven.EmbeddingService) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem db: %w", err)
	}

	metadata := map[string]string{"hnsw:space": "cosine"}
	collection, err := db.GetOrCreateCollection(DefaultCollection, metadata, nil)
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}

	s := &Store{
		db:           db,
		collection:   collection,
		embedder:     embedder,
		manifestPath: filepath.Join(path, "manifest.json"),
		manifest:     make(map[string]int),
	}
	if err := s.loadManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add stores chunks with their embeddings and provenance metadata.
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	metadatas := make([]map[string]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))

	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w: missing embedding", c.ID, domain.ErrInvalidInput)
		}
		ids = append(ids, c.ID)
		vectors = append(vectors, c.Embedding)
		metadatas = append(metadatas, encodeMetadata(c.Metadata))
		contents = append(contents, c.Content)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("adding chunks: %w", err)
	}
	for _, c := range chunks {
		s.manifest[c.Metadata.Filename]++
	}
	return s.saveManifest()
}

// Search embeds the query and returns the n nearest chunks.
// chromem reports cosine similarity in [0, 1]; distance is 1 minus it.
func (s *Store) Search(ctx context.Context, query string, n int) ([]domain.SearchResult, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// chromem rejects n greater than the collection size.
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []domain.SearchResult{}, nil
	}

	hits, err := s.collection.QueryEmbedding(ctx, qv, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, domain.SearchResult{
			Content:    hit.Content,
			Metadata:   decodeMetadata(hit.Metadata),
			Distance:   1 - float64(hit.Similarity),
			TrueVector: true,
		}.Sanitize())
	}
	return results, nil
}

// List returns one summary per filename, sorted by filename.
func (s *Store) List(_ context.Context) ([]domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.manifest))
	for f := range s.manifest {
		names = append(names, f)
	}
	sort.Strings(names)

	summaries := make([]domain.DocumentSummary, 0, len(names))
	for _, f := range names {
		summaries = append(summaries, domain.DocumentSummary{Filename: f, ChunkCount: s.manifest[f]})
	}
	return summaries, nil
}

// Delete removes every chunk for the filename.
func (s *Store) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := map[string]string{"filename": filename}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("deleting %q: %w", filename, err)
	}
	delete(s.manifest, filename)
	return s.saveManifest()
}

// TrueVector reports that distances are true cosine distances.
func (s *Store) TrueVector() bool { return true }

// Close releases nothing; chromem persists on write.
func (s *Store) Close() error { return nil }

// loadManifest reads the per-filename chunk counts, tolerating a
// missing file on first open.
func (s *Store) loadManifest() error {
	data, err := os.ReadFile(s.manifestPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	if err := json.Unmarshal(data, &s.manifest); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	return nil
}

// saveManifest writes the per-filename chunk counts.
func (s *Store) saveManifest() error {
	data, err := json.Marshal(s.manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath, data, 0600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// encodeMetadata flattens chunk provenance into chromem's string map.
func encodeMetadata(m domain.ChunkMetadata) map[string]string {
	out := map[string]string{
		"filename": m.Filename,
		"type":     string(m.Type),
	}
	if m.Page != "" {
		out["page"] = m.Page
	}
	if m.PageNumber != nil {
		out["page_number"] = strconv.Itoa(*m.PageNumber)
	}
	if m.Author != "" {
		out["author"] = m.Author
	}
	if m.Category != "" {
		out["category"] = m.Category
	}
	if m.MCPressURL != "" {
		out["mc_press_url"] = m.MCPressURL
	}
	for k, v := range m.Extra {
		out["extra."+k] = v
	}
	return out
}

// decodeMetadata restores chunk provenance from the string map.
func decodeMetadata(m map[string]string) domain.ChunkMetadata {
	meta := domain.ChunkMetadata{
		Filename:   m["filename"],
		Page:       m["page"],
		Type:       domain.ChunkType(m["type"]),
		Author:     m["author"],
		Category:   m["category"],
		MCPressURL: m["mc_press_url"],
	}
	if v, ok := m["page_number"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			meta.PageNumber = &n
		}
	}
	for k, v := range m {
		if rest, ok := strings.CutPrefix(k, "extra."); ok {
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			meta.Extra[rest] = v
		}
	}
	return meta
}
