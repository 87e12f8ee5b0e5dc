// Package llm holds prompt handling shared by the language model adapters.
// Each provider sub-package implements driven.LLMService over its own API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// AnswerMessages builds the system and user messages for answering question
// from contextText. Templates come from store when set; a user template
// without exactly two %s placeholders is ignored in favour of the default.
func AnswerMessages(store driven.PromptStore, contextText, question string) []driven.ChatMessage {
	system := loadPrompt(store, driven.PromptAnswerSystem)
	user := loadPrompt(store, driven.PromptAnswerUser)
	if strings.Count(user, "%s") != 2 || strings.Count(user, "%") != 2 {
		logger.Warn("Prompt %q must contain exactly two %%s placeholders, using the default", driven.PromptAnswerUser)
		user = driven.DefaultPrompts[driven.PromptAnswerUser]
	}

	return []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf(user, contextText, question)},
	}
}

// AnswerOptions returns the sampling options used for answers.
func AnswerOptions() driven.ChatOptions {
	return driven.ChatOptions{
		MaxTokens:   driven.AnswerMaxTokens,
		Temperature: driven.AnswerTemperature,
	}
}

func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		if prompt, err := store.Load(name); err == nil && prompt != "" {
			return prompt
		}
	}
	return driven.DefaultPrompts[name]
}

// Prompts gives a provider the prompt store used by Answer. Embed it to
// satisfy driven.PromptStoreAware.
type Prompts struct {
	store driven.PromptStore
}

// SetPromptStore sets the store the answer templates are read from.
func (p *Prompts) SetPromptStore(store driven.PromptStore) {
	p.store = store
}

// Chatter is the part of driven.LLMService that Answer builds on.
type Chatter interface {
	Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error)
}

// Answer runs the answer prompts through c and trims the reply.
func (p *Prompts) Answer(ctx context.Context, c Chatter, contextText, question string) (string, error) {
	reply, err := c.Chat(ctx, AnswerMessages(p.store, contextText, question), AnswerOptions())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
