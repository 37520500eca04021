package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
	"github.com/mcpress/bookchat/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService runs the retrieval pipeline: search the index,
// filter candidates by the query-dependent relevance threshold, then fan
// out into context assembly, confidence scoring, and source formatting.
//
// The pipeline is read-only with respect to the index: no retries, no
// partial writes, nothing to clean up on cancellation.
type RetrievalService struct {
	index     driven.VectorIndex
	filter    *RelevanceFilter
	assembler *ContextAssembler
	formatter *SourceFormatter
	cfg       Config
}

// NewRetrievalService creates the pipeline.
func NewRetrievalService(
	index driven.VectorIndex,
	filter *RelevanceFilter,
	assembler *ContextAssembler,
	formatter *SourceFormatter,
	cfg Config,
) *RetrievalService {
	return &RetrievalService{
		index:     index,
		filter:    filter,
		assembler: assembler,
		formatter: formatter,
		cfg:       cfg,
	}
}

// Retrieve runs one retrieval pass for the query. An index failure
// propagates to the caller; zero relevant results is a normal outcome
// and yields an empty retrieval.
func (s *RetrievalService) Retrieve(ctx context.Context, query string) (*driving.Retrieval, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	threshold, class := s.filter.ThresholdFor(query)
	ret := &driving.Retrieval{
		Results:   []domain.SearchResult{},
		Threshold: threshold,
		Sources:   []domain.Source{},
	}

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return ret, nil
	}

	raw, err := s.index.Search(ctx, query, s.cfg.InitialResults)
	if err != nil {
		logger.Warn("Index search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Raw candidates: %d (backend true-vector: %t)", len(raw), s.index.TrueVector())

	filtered := s.filter.Filter(raw, query)
	logger.Info("Relevance filter: class=%s threshold=%.2f kept=%d", class, threshold, len(filtered))

	ret.Results = filtered
	if len(filtered) == 0 {
		return ret, nil
	}

	// The three consumers only read the filtered slice, so they can run
	// concurrently. Each preserves the filtered order independently.
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		ret.Context = s.assembler.AssembleTruncated(filtered)
	}()

	go func() {
		defer wg.Done()
		ret.Confidence = ConfidenceScore(filtered)
	}()

	go func() {
		defer wg.Done()
		ret.Sources = s.formatter.Format(ctx, filtered)
	}()

	wg.Wait()

	logger.Debug("Retrieval: %d results, %d sources, confidence %.3f",
		len(ret.Results), len(ret.Sources), ret.Confidence)
	return ret, nil
}
