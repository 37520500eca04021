package memory

import (
	"context"
	"sync"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// Ensure EnrichmentStore implements the interface.
var _ driven.EnrichmentStore = (*EnrichmentStore)(nil)

// EnrichmentStore is an in-memory catalogue for tests and local mode.
type EnrichmentStore struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
	authors map[int64][]domain.Author
}

// NewEnrichmentStore creates an empty catalogue.
func NewEnrichmentStore() *EnrichmentStore {
	return &EnrichmentStore{
		records: make(map[string]domain.DocumentRecord),
		authors: make(map[int64][]domain.Author),
	}
}

// PutDocument registers a catalogue record for a filename.
func (s *EnrichmentStore) PutDocument(filename string, record domain.DocumentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[filename] = record
}

// PutAuthors registers the ordered author list for a book.
func (s *EnrichmentStore) PutAuthors(bookID int64, authors []domain.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[bookID] = authors
}

// FindDocumentByFilename returns the record or domain.ErrNotFound.
func (s *EnrichmentStore) FindDocumentByFilename(_ context.Context, filename string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[filename]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// FindAuthorsForDocument returns the book's authors in listing order.
func (s *EnrichmentStore) FindAuthorsForDocument(_ context.Context, bookID int64) ([]domain.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authors[bookID], nil
}

// Close releases nothing for the in-memory store.
func (s *EnrichmentStore) Close() error { return nil }
