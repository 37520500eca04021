// Package pgvector provides a PostgreSQL vector index using the
// pgvector extension. It is the shared-infrastructure true-vector
// backend: cosine distance computed by the database, with an HNSW
// index over the embedding column.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorIndex = (*Store)(nil)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Store is a pgvector-backed vector index.
type Store struct {
	db       *sql.DB
	embedder driven.EmbeddingService
}

// NewStore opens a connection pool against dsn and ensures the schema
// exists. The embedding column dimension comes from the embedder, so a
// model change needs a re-index into a fresh database.
func NewStore(dsn string, embedder driven.EmbeddingService) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, embedder: embedder}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	dims := 768
	if s.embedder != nil && s.embedder.Dimensions() > 0 {
		dims = s.embedder.Dimensions()
	}

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS book_chunks (
            id TEXT PRIMARY KEY,
            filename TEXT NOT NULL,
            page TEXT NOT NULL DEFAULT '',
            page_number INTEGER,
            chunk_type TEXT NOT NULL DEFAULT '',
            author TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            mc_press_url TEXT NOT NULL DEFAULT '',
            extra JSONB,
            content TEXT NOT NULL,
            embedding VECTOR(%d) NOT NULL,
            created_at TIMESTAMP DEFAULT NOW()
        )`, dims)
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("creating book_chunks table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS book_chunks_filename_idx
        ON book_chunks (filename)`); err != nil {
		return fmt.Errorf("creating filename index: %w", err)
	}

	// HNSW creation can fail on older pgvector releases. Search still
	// works without it, so only warn.
	if _, err := s.db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS book_chunks_embedding_idx
        ON book_chunks USING hnsw (embedding vector_cosine_ops)`); err != nil {
		logger.Warn("pgvector: could not create HNSW index: %v", err)
	}
	return nil
}

// Add upserts chunks by ID inside a single transaction.
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO book_chunks
            (id, filename, page, page_number, chunk_type, author,
             category, mc_press_url, extra, content, embedding)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET
            filename = EXCLUDED.filename,
            page = EXCLUDED.page,
            page_number = EXCLUDED.page_number,
            chunk_type = EXCLUDED.chunk_type,
            author = EXCLUDED.author,
            category = EXCLUDED.category,
            mc_press_url = EXCLUDED.mc_press_url,
            extra = EXCLUDED.extra,
            content = EXCLUDED.content,
            embedding = EXCLUDED.embedding,
            created_at = NOW()`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w: missing embedding", c.ID, domain.ErrInvalidInput)
		}

		var extra []byte
		if len(c.Metadata.Extra) > 0 {
			extra, err = json.Marshal(c.Metadata.Extra)
			if err != nil {
				return fmt.Errorf("chunk %s: encoding extra metadata: %w", c.ID, err)
			}
		}

		var pageNumber sql.NullInt64
		if c.Metadata.PageNumber != nil {
			pageNumber = sql.NullInt64{Int64: int64(*c.Metadata.PageNumber), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Metadata.Filename, c.Metadata.Page, pageNumber,
			string(c.Metadata.Type), c.Metadata.Author, c.Metadata.Category,
			c.Metadata.MCPressURL, extra, c.Content,
			pgv.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Search embeds the query and returns the n nearest chunks by cosine
// distance. The <=> operator yields distances in [0, 2] directly, so
// results need no rescaling before sanitisation.
func (s *Store) Search(ctx context.Context, query string, n int) ([]domain.SearchResult, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if n <= 0 {
		return nil, nil
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT filename, page, page_number, chunk_type, author,
               category, mc_press_url, extra, content,
               embedding <=> $1 AS distance
        FROM book_chunks
        ORDER BY embedding <=> $1
        LIMIT $2`, pgv.NewVector(qv), n)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			r          domain.SearchResult
			pageNumber sql.NullInt64
			chunkType  string
			extra      []byte
		)
		if err := rows.Scan(
			&r.Metadata.Filename, &r.Metadata.Page, &pageNumber,
			&chunkType, &r.Metadata.Author, &r.Metadata.Category,
			&r.Metadata.MCPressURL, &extra, &r.Content, &r.Distance,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		r.Metadata.Type = domain.ChunkType(chunkType)
		if pageNumber.Valid {
			pn := int(pageNumber.Int64)
			r.Metadata.PageNumber = &pn
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &r.Metadata.Extra); err != nil {
				return nil, fmt.Errorf("decoding extra metadata: %w", err)
			}
		}
		r.TrueVector = true
		results = append(results, r.Sanitize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return results, nil
}

// List returns a per-document summary ordered by filename.
func (s *Store) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT filename, COUNT(*)
        FROM book_chunks
        GROUP BY filename
        ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var summaries []domain.DocumentSummary
	for rows.Next() {
		var d domain.DocumentSummary
		if err := rows.Scan(&d.Filename, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		summaries = append(summaries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return summaries, nil
}

// Delete removes every chunk belonging to filename.
func (s *Store) Delete(ctx context.Context, filename string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM book_chunks WHERE filename = $1`, filename)
	if err != nil {
		return fmt.Errorf("deleting document %q: %w", filename, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("document %q: %w", filename, domain.ErrNotFound)
	}
	return nil
}

// TrueVector reports that pgvector computes true cosine distances.
func (s *Store) TrueVector() bool { return true }

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
