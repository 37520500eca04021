package domain

// Author is a single author entry from the enrichment store, ordered
// as listed on the book.
type Author struct {
	// ID is the enrichment store's author ID, 0 when synthesised from
	// chunk metadata.
	ID int64

	// Name is the author's display name.
	Name string

	// SiteURL is the author's site, if any.
	SiteURL string

	// Order is the 0-based position in the book's author list.
	Order int
}

// Source is a rendered citation for one (filename, page) pair.
// No two Sources in a single response share the same dedup key.
type Source struct {
	// Filename is the source document's file name.
	Filename string

	// Page is the resolved page label.
	Page string

	// Type is the chunk type of the first-encountered chunk for the key.
	Type ChunkType

	// Distance is the first-encountered chunk's distance.
	Distance float64

	// Title is the book title, enriched when available.
	Title string

	// Author is the joined display string for all authors.
	Author string

	// Authors is the ordered author list.
	Authors []Author

	// MCPressURL is the store page for the book, if any.
	MCPressURL string

	// ArticleURL is the originating article, if any.
	ArticleURL string

	// DocumentType distinguishes books from articles and other records.
	DocumentType string
}

// DedupKey returns the (filename, page) identity of the citation.
func (s Source) DedupKey() string {
	return s.Filename + "\x00" + s.Page
}

// DocumentRecord is the book-level row returned by the enrichment store.
type DocumentRecord struct {
	// ID is the store's primary key for the document.
	ID int64

	// Title is the book or article title.
	Title string

	// LegacyAuthor is the single-string author column kept for records
	// that predate the authors relation.
	LegacyAuthor string

	// MCPressURL is the store page URL.
	MCPressURL string

	// ArticleURL is the originating article URL, if any.
	ArticleURL string

	// DocumentType distinguishes books from articles and other records.
	DocumentType string

	// Category is the catalogue category, if any.
	Category string
}

// Answer is the chat layer's final response for one question.
type Answer struct {
	// Text is the full answer text.
	Text string

	// Confidence is the retrieval confidence in [0, 1].
	Confidence float64

	// Sources are the deduplicated citations backing the answer.
	Sources []Source

	// UsedContext reports whether documentation context grounded the
	// answer, or the model fell back to general knowledge.
	UsedContext bool
}
