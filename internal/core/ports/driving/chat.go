package driving

import (
	"context"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
)

// ChatService answers questions grounded in retrieved documentation.
type ChatService interface {
	// Ask retrieves context for the question and streams an answer.
	// onDelta receives text fragments as they arrive and may be nil.
	// When retrieval finds nothing relevant the answer is produced from
	// general knowledge with a disclaimer, never a hard error.
	Ask(ctx context.Context, question string, history []driven.ChatMessage, onDelta func(delta string) error) (*domain.Answer, error)
}
