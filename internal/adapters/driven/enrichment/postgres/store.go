// Package postgres provides the catalogue-backed enrichment store.
// It reads the MC Press book catalogue (books, authors and their
// join table) to enrich citations with titles, author lists and
// store URLs.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.EnrichmentStore = (*Store)(nil)

const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Store is a read-only client for the catalogue database.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection pool against dsn, typically the
// DATABASE_URL value. The catalogue schema is owned by the store
// backend; this client never writes to it.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalogue database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging catalogue database: %w", err)
	}

	return &Store{db: db}, nil
}

// FindDocumentByFilename returns the catalogue record owning the file.
func (s *Store) FindDocumentByFilename(ctx context.Context, filename string) (*domain.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, title, COALESCE(author, ''), COALESCE(mc_press_url, ''),
               COALESCE(article_url, ''), COALESCE(document_type, ''),
               COALESCE(category, '')
        FROM books
        WHERE filename = $1`, filename)

	var rec domain.DocumentRecord
	err := row.Scan(&rec.ID, &rec.Title, &rec.LegacyAuthor, &rec.MCPressURL,
		&rec.ArticleURL, &rec.DocumentType, &rec.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", filename, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up document %q: %w", filename, err)
	}
	return &rec, nil
}

// FindAuthorsForDocument returns the book's authors in listing order.
func (s *Store) FindAuthorsForDocument(ctx context.Context, bookID int64) ([]domain.Author, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT a.id, a.name, COALESCE(a.site_url, ''), ba.author_order
        FROM authors a
        JOIN book_authors ba ON ba.author_id = a.id
        WHERE ba.book_id = $1
        ORDER BY ba.author_order`, bookID)
	if err != nil {
		return nil, fmt.Errorf("looking up authors for book %d: %w", bookID, err)
	}
	defer rows.Close()

	var authors []domain.Author
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.SiteURL, &a.Order); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating authors: %w", err)
	}
	return authors, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
