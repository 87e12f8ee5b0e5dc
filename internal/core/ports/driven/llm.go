package driven

import "context"

// LLMService answers questions over retrieved code. It is optional: without
// one, ask returns the retrieved context and no generated text.
//
// Providers: openai (also Groq through its compatible endpoint), anthropic
// and ollama.
type LLMService interface {
	// Chat sends a conversation and returns the reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// Answer formats the answer prompts around contextText and question
	// and returns the trimmed reply.
	Answer(ctx context.Context, contextText, question string) (string, error)

	ModelName() string

	// Ping checks credentials and reachability without generating text.
	Ping(ctx context.Context) error

	Close() error
}

// ChatMessage is one turn; Role is "system", "user" or "assistant".
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions are the sampling options of a Chat call. Zero values leave
// the provider default.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// Answer generation defaults shared by all providers.
const (
	AnswerTemperature = 0.5
	AnswerMaxTokens   = 1024
)
