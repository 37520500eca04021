package services

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// Default pipeline settings. Thresholds are calibrated against true
// vector-similarity distances; the lexical fallback reuses the same
// table as a known approximation.
const (
	DefaultDomainThreshold   = 0.70
	DefaultHowToThreshold    = 0.65
	DefaultConfigThreshold   = 0.60
	DefaultQuotedThreshold   = 0.40
	DefaultBaselineThreshold = 0.50

	DefaultMaxSources         = 8
	DefaultInitialResults     = 10
	DefaultContextTokenBudget = 6000
)

// Config store keys for persisted retrieval settings.
const (
	KeyRelevanceThreshold = "retrieval.relevance_threshold"
	KeyMaxSources         = "retrieval.max_sources"
	KeyInitialResults     = "retrieval.initial_search_results"
	KeyContextTokenBudget = "retrieval.context_token_budget"
)

// RelevanceConfig holds the per-class distance thresholds and the result
// cap. Each threshold is an independent constant: the ordering between
// classes is calibration, not construction, so none is derived from
// another.
type RelevanceConfig struct {
	// DomainThreshold admits candidates for domain-technical queries.
	DomainThreshold float64

	// HowToThreshold admits candidates for how-to and code queries.
	HowToThreshold float64

	// ConfigThreshold admits candidates for configuration queries.
	ConfigThreshold float64

	// QuotedThreshold admits candidates for quoted phrase queries.
	QuotedThreshold float64

	// BaselineThreshold admits candidates for everything else.
	BaselineThreshold float64

	// MaxSources caps the filtered result count.
	MaxSources int
}

// Config holds the retrieval pipeline settings.
type Config struct {
	// Relevance configures the filter.
	Relevance RelevanceConfig

	// InitialResults is how many raw candidates to request before
	// filtering. Must be at least Relevance.MaxSources.
	InitialResults int

	// ContextTokenBudget bounds the assembled context block.
	ContextTokenBudget int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Relevance: RelevanceConfig{
			DomainThreshold:   DefaultDomainThreshold,
			HowToThreshold:    DefaultHowToThreshold,
			ConfigThreshold:   DefaultConfigThreshold,
			QuotedThreshold:   DefaultQuotedThreshold,
			BaselineThreshold: DefaultBaselineThreshold,
			MaxSources:        DefaultMaxSources,
		},
		InitialResults:     DefaultInitialResults,
		ContextTokenBudget: DefaultContextTokenBudget,
	}
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.Relevance.MaxSources < 1 {
		return fmt.Errorf("max sources must be at least 1, got %d", c.Relevance.MaxSources)
	}
	if c.InitialResults < c.Relevance.MaxSources {
		return fmt.Errorf("initial search results (%d) must be >= max sources (%d)",
			c.InitialResults, c.Relevance.MaxSources)
	}
	if c.ContextTokenBudget < 1 {
		return fmt.Errorf("context token budget must be at least 1, got %d", c.ContextTokenBudget)
	}
	return nil
}

// ConfigFromStore overlays persisted settings onto base.
// Unset keys keep the base value.
func ConfigFromStore(store driven.ConfigStore, base Config) Config {
	if store == nil {
		return base
	}
	if v, ok := store.Get(KeyRelevanceThreshold); ok {
		if f, ok := toFloat(v); ok {
			base.Relevance.BaselineThreshold = f
		}
	}
	if n := store.GetInt(KeyMaxSources); n > 0 {
		base.Relevance.MaxSources = n
	}
	if n := store.GetInt(KeyInitialResults); n > 0 {
		base.InitialResults = n
	}
	if n := store.GetInt(KeyContextTokenBudget); n > 0 {
		base.ContextTokenBudget = n
	}
	return base
}

// ConfigFromEnv overlays environment variables onto base.
// Recognised variables: RELEVANCE_THRESHOLD, MAX_SOURCES,
// INITIAL_SEARCH_RESULTS, CONTEXT_TOKEN_BUDGET.
func ConfigFromEnv(base Config) Config {
	if v := os.Getenv("RELEVANCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			base.Relevance.BaselineThreshold = f
		}
	}
	if v := os.Getenv("MAX_SOURCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			base.Relevance.MaxSources = n
		}
	}
	if v := os.Getenv("INITIAL_SEARCH_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			base.InitialResults = n
		}
	}
	if v := os.Getenv("CONTEXT_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			base.ContextTokenBudget = n
		}
	}
	return base
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
