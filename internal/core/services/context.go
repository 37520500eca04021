package services

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/logger"
)

// contextSeparator visually divides chunk blocks in the assembled context.
const contextSeparator = "---"

// tiktokenEncoding is the BPE encoding used for token counting. It
// matches the cl100k family used by the downstream chat models.
const tiktokenEncoding = "cl100k_base"

// TokenCounter counts tokens the way the downstream LLM would.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the cl100k_base encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(tiktokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", tiktokenEncoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the BPE token count of text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// WordCounter approximates tokens by whitespace-delimited words. Used
// when the BPE encoding cannot be loaded (e.g. no cached BPE files and
// no network).
type WordCounter struct{}

// Count returns the whitespace-delimited word count of text.
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// NewTokenCounter returns a TiktokenCounter when the encoding loads,
// falling back to word counting otherwise.
func NewTokenCounter() TokenCounter {
	counter, err := NewTiktokenCounter()
	if err != nil {
		logger.Warn("Token counter: %v (falling back to word counting)", err)
		return WordCounter{}
	}
	return counter
}

// ContextAssembler joins filtered results into a single context block
// with per-chunk provenance headers, bounded by a token budget.
//
// Assembly never deduplicates or reorders: multiple chunks from the same
// page may legitimately appear in the context even though citations are
// deduplicated.
type ContextAssembler struct {
	counter TokenCounter
	budget  int
}

// NewContextAssembler creates an assembler with the given counter and
// default token budget.
func NewContextAssembler(counter TokenCounter, budget int) *ContextAssembler {
	if budget < 1 {
		budget = DefaultContextTokenBudget
	}
	return &ContextAssembler{counter: counter, budget: budget}
}

// Assemble renders results, in the order given, as provenance-headed
// blocks joined by a separator line. Empty input yields "".
func (a *ContextAssembler) Assemble(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		b.WriteString(provenanceHeader(r))
		b.WriteString("\n")
		b.WriteString(r.Content)
		b.WriteString("\n")
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n"+contextSeparator+"\n\n")
}

// AssembleTruncated assembles and then truncates to the configured
// budget.
func (a *ContextAssembler) AssembleTruncated(results []domain.SearchResult) string {
	return a.Truncate(a.Assemble(results), a.budget)
}

// Truncate greedily accumulates whole words until adding the next word
// would exceed budget tokens. Truncation may cut mid-chunk; budget
// enforcement takes priority over chunk completeness.
func (a *ContextAssembler) Truncate(text string, budget int) string {
	if budget < 1 || text == "" {
		return ""
	}

	total := a.counter.Count(text)
	if total <= budget {
		return text
	}
	logger.Debug("Context truncation: %d tokens over budget %d", total, budget)

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	used := 0
	for i, w := range words {
		cost := a.counter.Count(w)
		if i > 0 {
			cost = a.counter.Count(" " + w)
		}
		if used+cost > budget {
			break
		}
		kept = append(kept, w)
		used += cost
	}

	// Per-word counting can drift from counting the joined text when the
	// encoder merges across word boundaries. Re-count and trim until the
	// budget actually holds.
	out := strings.Join(kept, " ")
	for len(kept) > 0 && a.counter.Count(out) > budget {
		kept = kept[:len(kept)-1]
		out = strings.Join(kept, " ")
	}
	return out
}

// provenanceHeader renders "[Source: <filename>, Page <page>, Type:
// <type>]", omitting absent fields.
func provenanceHeader(r domain.SearchResult) string {
	parts := make([]string, 0, 3)
	if r.Metadata.Filename != "" {
		parts = append(parts, "Source: "+r.Metadata.Filename)
	}
	parts = append(parts, "Page "+r.PageLabel())
	if r.Metadata.Type != "" {
		parts = append(parts, "Type: "+string(r.Metadata.Type))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
