package driven

import "context"

// LLMService provides language model operations for answering questions.
// This is an optional service - when nil, the chat command is disabled
// and only raw retrieval is available.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Ollama (local models)
//   - LM Studio (local inference server)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream conducts a conversation, invoking onDelta for each text
	// fragment as it arrives, and returns the full accumulated reply.
	// A non-nil error from onDelta aborts the stream.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onDelta func(delta string) error) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
