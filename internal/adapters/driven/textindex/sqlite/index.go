// Package sqlite provides a lexical fallback index backed by SQLite.
// It needs no embedding service and no vector extension: chunks are
// tokenised into a term-frequency table and ranked by summed term
// frequency. Distances are a rank-derived proxy, not true cosine
// distances, so results carry TrueVector = false.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mcpress/bookchat/internal/adapters/driven/textindex/sqlite/migrations"
	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// minTermLength drops single-character tokens, which carry no signal
// and bloat the term table.
const minTermLength = 2

// Index is a SQLite-backed lexical index.
type Index struct {
	db   *sql.DB
	path string
}

// NewIndex creates or opens a lexical index in dataDir. If dataDir is
// empty, defaults to ~/.bookchat/data.
func NewIndex(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".bookchat", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "textindex.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	idx := &Index{db: db, path: dbPath}
	if err := idx.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return idx, nil
}

// migrate runs all pending migrations.
func (i *Index) migrate(fsys embed.FS) error {
	_, err := i.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := i.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := i.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := i.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Add stores chunks and their term frequencies in one transaction.
// Embeddings are ignored: the lexical index ranks by text alone.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}

		var extra any
		if len(c.Metadata.Extra) > 0 {
			data, err := json.Marshal(c.Metadata.Extra)
			if err != nil {
				return fmt.Errorf("chunk %s: marshalling extra metadata: %w", c.ID, err)
			}
			extra = string(data)
		}

		var pageNumber any
		if c.Metadata.PageNumber != nil {
			pageNumber = *c.Metadata.PageNumber
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, filename, page, page_number, chunk_type,
				author, category, mc_press_url, extra, content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				filename = excluded.filename,
				page = excluded.page,
				page_number = excluded.page_number,
				chunk_type = excluded.chunk_type,
				author = excluded.author,
				category = excluded.category,
				mc_press_url = excluded.mc_press_url,
				extra = excluded.extra,
				content = excluded.content
		`, c.ID, c.Metadata.Filename, c.Metadata.Page, pageNumber,
			string(c.Metadata.Type), c.Metadata.Author, c.Metadata.Category,
			c.Metadata.MCPressURL, extra, c.Content)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}

		// Rebuild term rows on upsert
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_terms WHERE chunk_id = ?", c.ID); err != nil {
			return fmt.Errorf("clearing terms for chunk %s: %w", c.ID, err)
		}
		for term, freq := range tokenize(c.Content) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chunk_terms (chunk_id, term, freq) VALUES (?, ?, ?)
			`, c.ID, term, freq); err != nil {
				return fmt.Errorf("inserting term %q for chunk %s: %w", term, c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Search ranks chunks by summed query-term frequency and converts the
// rank into a distance proxy: the best hit scores distance 0 and the
// rest scale linearly by score relative to the best. The proxy stays
// in [0, 1] so the relevance thresholds remain applicable.
func (i *Index) Search(ctx context.Context, query string, n int) ([]domain.SearchResult, error) {
	if n <= 0 {
		return nil, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+1)
	for term := range terms {
		placeholders = append(placeholders, "?")
		args = append(args, term)
	}
	args = append(args, n)

	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT c.id, c.filename, c.page, c.page_number, c.chunk_type,
			c.author, c.category, c.mc_press_url, c.extra, c.content,
			SUM(t.freq) AS score
		FROM chunk_terms t
		JOIN chunks c ON c.id = t.chunk_id
		WHERE t.term IN (%s)
		GROUP BY c.id
		ORDER BY score DESC, c.id
		LIMIT ?
	`, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()

	type scoredRow struct {
		result domain.SearchResult
		score  float64
	}
	var scored []scoredRow

	for rows.Next() {
		var (
			id         string
			r          domain.SearchResult
			pageNumber sql.NullInt64
			chunkType  string
			extra      sql.NullString
			score      float64
		)
		if err := rows.Scan(&id, &r.Metadata.Filename, &r.Metadata.Page,
			&pageNumber, &chunkType, &r.Metadata.Author, &r.Metadata.Category,
			&r.Metadata.MCPressURL, &extra, &r.Content, &score); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		r.Metadata.Type = domain.ChunkType(chunkType)
		if pageNumber.Valid {
			pn := int(pageNumber.Int64)
			r.Metadata.PageNumber = &pn
		}
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &r.Metadata.Extra); err != nil {
				return nil, fmt.Errorf("decoding extra metadata: %w", err)
			}
		}
		scored = append(scored, scoredRow{result: r, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	if len(scored) == 0 {
		return nil, nil
	}

	best := scored[0].score
	results := make([]domain.SearchResult, 0, len(scored))
	for _, sr := range scored {
		sr.result.Distance = 1 - sr.score/best
		sr.result.TrueVector = false
		results = append(results, sr.result.Sanitize())
	}
	return results, nil
}

// List returns a per-document summary ordered by filename.
func (i *Index) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT filename, COUNT(*)
		FROM chunks
		GROUP BY filename
		ORDER BY filename
	`)
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

// Delete removes every chunk belonging to filename. Term rows cascade.
func (i *Index) Delete(ctx context.Context, filename string) error {
	res, err := i.db.ExecContext(ctx, "DELETE FROM chunks WHERE filename = ?", filename)
	if err != nil {
		return fmt.Errorf("deleting document %q: %w", filename, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("document %q: %w", filename, domain.ErrNotFound)
	}
	return nil
}

// TrueVector reports that this backend ranks lexically, not by vector
// similarity.
func (i *Index) TrueVector() bool { return false }

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// tokenize lowercases text and splits on non-alphanumeric runes,
// returning per-term frequencies. Short tokens are dropped.
func tokenize(text string) map[string]int {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make(map[string]int)
	for _, f := range fields {
		if len(f) < minTermLength {
			continue
		}
		terms[f]++
	}
	return terms
}
