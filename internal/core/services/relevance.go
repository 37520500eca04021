package services

import (
	"sort"
	"strings"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/logger"
)

// QueryClass identifies which threshold bucket a query fell into.
type QueryClass string

const (
	// QueryClassTechnical matched a domain-technical keyword.
	QueryClassTechnical QueryClass = "technical"

	// QueryClassHowTo matched a how-to or code keyword.
	QueryClassHowTo QueryClass = "howto"

	// QueryClassConfig matched a configuration or setup keyword.
	QueryClassConfig QueryClass = "configuration"

	// QueryClassQuoted contains an explicit quoted phrase.
	QueryClassQuoted QueryClass = "quoted"

	// QueryClassBaseline matched nothing and uses the baseline threshold.
	QueryClassBaseline QueryClass = "baseline"
)

// Domain-technical vocabulary. Queries touching this jargon cast the
// widest net: exact phrasing is sparse in the corpus but topical
// relevance is high.
var technicalKeywords = []string{
	"rpg", "rpgle", "sqlrpgle", "ile rpg",
	"as/400", "as400", "ibm i", "iseries", "system i",
	"subfile", "display file", "dds", "printer file",
	"cl program", "clle", "clp",
	"db2", "journaling", "journal receiver",
	"data area", "data queue", "message queue",
	"activation group", "service program", "binding directory",
	"spool", "spooled file", "library list",
	"pase", "qshell", "sql procedure",
}

// How-to and code-seeking phrasing.
var howToKeywords = []string{
	"how to", "how do i", "how can i",
	"example", "sample", "snippet",
	"code for", "write a", "show me",
	"implement", "tutorial", "step by step",
}

// Configuration and setup phrasing.
var configKeywords = []string{
	"configure", "configuration", "config",
	"setup", "set up", "install", "installation",
	"setting", "settings", "parameter", "option",
	"environment variable", "enable", "disable",
}

// RelevanceFilter decides which raw candidates are relevant enough to
// ground an answer. The threshold depends only on the query text, never
// on the candidate set, so filtering is a pure function of its inputs.
type RelevanceFilter struct {
	cfg RelevanceConfig
}

// NewRelevanceFilter creates a filter with the given thresholds.
func NewRelevanceFilter(cfg RelevanceConfig) *RelevanceFilter {
	return &RelevanceFilter{cfg: cfg}
}

// ThresholdFor classifies the query and returns the distance threshold
// for its class. Classification is substring matching in priority order;
// the first match wins.
func (f *RelevanceFilter) ThresholdFor(query string) (float64, QueryClass) {
	q := strings.ToLower(query)

	if containsAny(q, technicalKeywords) {
		return f.cfg.DomainThreshold, QueryClassTechnical
	}
	if containsAny(q, howToKeywords) {
		return f.cfg.HowToThreshold, QueryClassHowTo
	}
	if containsAny(q, configKeywords) {
		return f.cfg.ConfigThreshold, QueryClassConfig
	}
	if strings.Count(query, `"`) >= 2 {
		return f.cfg.QuotedThreshold, QueryClassQuoted
	}
	return f.cfg.BaselineThreshold, QueryClassBaseline
}

// Filter sanitises candidates, keeps those within the query's distance
// threshold, orders them best-first, and caps the count at MaxSources.
// An empty result is a normal outcome, not a failure.
func (f *RelevanceFilter) Filter(results []domain.SearchResult, query string) []domain.SearchResult {
	threshold, class := f.ThresholdFor(query)
	logger.Debug("Relevance filter: class=%s threshold=%.2f candidates=%d", class, threshold, len(results))

	kept := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		r = r.Sanitize()
		if r.Distance <= threshold {
			kept = append(kept, r)
		}
	}

	// Stable sort preserves retrieval order among equal distances.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Distance < kept[j].Distance
	})

	if len(kept) > f.cfg.MaxSources {
		kept = kept[:f.cfg.MaxSources]
	}

	logger.Debug("Relevance filter: kept %d", len(kept))
	return kept
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
