package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
	"github.com/mcpress/bookchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// groundedSystemPrompt frames an answer around retrieved documentation.
const groundedSystemPrompt = `You are a technical assistant for MC Press books and articles about IBM i development.
Answer the question using the documentation excerpts below. Cite the source file and page when you rely on an excerpt.
If the excerpts do not cover the question, say so before answering from general knowledge.

Documentation excerpts:

%s`

// fallbackSystemPrompt is used when retrieval found nothing relevant.
const fallbackSystemPrompt = `You are a technical assistant for MC Press books and articles about IBM i development.
No matching documentation was found for this question. Answer from general knowledge, and start your reply by noting that no MC Press documentation was found on the topic.`

// defaultChatOptions bound answer length and keep output reproducible.
var defaultChatOptions = driven.ChatOptions{
	MaxTokens:   1024,
	Temperature: 0.2,
}

// ChatService answers questions grounded in retrieved documentation.
// Retrieval failures degrade to a general-knowledge answer with a
// disclaimer; only an LLM failure surfaces as an error.
type ChatService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
}

// NewChatService creates a chat service.
func NewChatService(retrieval driving.RetrievalService, llm driven.LLMService) *ChatService {
	return &ChatService{retrieval: retrieval, llm: llm}
}

// Ask retrieves context for the question and streams an answer.
func (s *ChatService) Ask(
	ctx context.Context,
	question string,
	history []driven.ChatMessage,
	onDelta func(delta string) error,
) (*domain.Answer, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Chat")

	ret := s.retrieve(ctx, question)
	usedContext := len(ret.Results) > 0

	system := fallbackSystemPrompt
	if usedContext {
		system = fmt.Sprintf(groundedSystemPrompt, ret.Context)
	}

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, driven.ChatMessage{Role: "user", Content: strings.TrimSpace(question)})

	var text string
	var err error
	if onDelta != nil {
		text, err = s.llm.ChatStream(ctx, messages, defaultChatOptions, onDelta)
	} else {
		text, err = s.llm.Chat(ctx, messages, defaultChatOptions)
	}
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	return &domain.Answer{
		Text:        text,
		Confidence:  ret.Confidence,
		Sources:     ret.Sources,
		UsedContext: usedContext,
	}, nil
}

// retrieve runs retrieval, degrading to an empty retrieval when the
// index is unreachable so the chat still answers.
func (s *ChatService) retrieve(ctx context.Context, question string) *driving.Retrieval {
	empty := &driving.Retrieval{
		Results: []domain.SearchResult{},
		Sources: []domain.Source{},
	}
	if s.retrieval == nil {
		return empty
	}

	ret, err := s.retrieval.Retrieve(ctx, question)
	if err != nil {
		logger.Warn("Retrieval failed, answering without context: %v", err)
		return empty
	}
	return ret
}
