package cli

import (
	"context"
	"errors"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

// mockRetrievalService returns a fixed retrieval.
type mockRetrievalService struct {
	retrieval *driving.Retrieval
	err       error
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string) (*driving.Retrieval, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.retrieval, nil
}

// mockChatService streams a fixed answer.
type mockChatService struct {
	answer *domain.Answer
	err    error
}

func (m *mockChatService) Ask(_ context.Context, _ string, _ []driven.ChatMessage, onDelta func(delta string) error) (*domain.Answer, error) {
	if m.err != nil {
		return nil, m.err
	}
	if onDelta != nil {
		if err := onDelta(m.answer.Text); err != nil {
			return nil, err
		}
	}
	return m.answer, nil
}

// mockIngestService records calls.
type mockIngestService struct {
	ingested  []driving.Segment
	summaries []domain.DocumentSummary
	deleted   []string
	err       error
}

func (m *mockIngestService) Ingest(_ context.Context, segments []driving.Segment) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.ingested = append(m.ingested, segments...)
	return len(segments), nil
}

func (m *mockIngestService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.summaries, nil
}

func (m *mockIngestService) Delete(_ context.Context, filename string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, filename)
	return nil
}

var errMockService = errors.New("mock service failure")

// setupTestServices injects working mocks and returns a cleanup that
// restores the previous services.
func setupTestServices() func() {
	oldRetrieval := retrievalService
	oldChat := chatService
	oldIngest := ingestService
	oldConfig := configStore

	retrievalService = &mockRetrievalService{
		retrieval: &driving.Retrieval{
			Results: []domain.SearchResult{
				{
					Content:    "Subfiles are loaded with a write/read cycle.",
					Metadata:   domain.ChunkMetadata{Filename: "subfiles.pdf", Page: "42", Type: domain.ChunkTypeText},
					Distance:   0.3,
					Similarity: 0.7,
					TrueVector: true,
				},
			},
			Threshold:  0.70,
			Context:    "[Source: subfiles.pdf, Page 42, Type: text]\nSubfiles are loaded with a write/read cycle.\n",
			Confidence: 0.7,
			Sources: []domain.Source{
				{Filename: "subfiles.pdf", Page: "42", Title: "Subfiles in Free-Format RPG", Author: "An Author"},
			},
		},
	}
	chatService = &mockChatService{
		answer: &domain.Answer{
			Text:        "Load the subfile with a write/read cycle.",
			Confidence:  0.7,
			UsedContext: true,
			Sources: []domain.Source{
				{Filename: "subfiles.pdf", Page: "42", Title: "Subfiles in Free-Format RPG", Author: "An Author"},
			},
		},
	}
	ingestService = &mockIngestService{
		summaries: []domain.DocumentSummary{{Filename: "subfiles.pdf", ChunkCount: 12}},
	}

	return func() {
		retrievalService = oldRetrieval
		chatService = oldChat
		ingestService = oldIngest
		configStore = oldConfig
	}
}
