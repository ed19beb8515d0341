package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Generator produces an answer constrained to the supplied notes context.
type Generator interface {
	Answer(ctx context.Context, query, notesContext string) (string, error)
}

// OpenAIAnswerer generates answers through an OpenAI chat-completion model.
type OpenAIAnswerer struct {
	llm   llms.Model
	model string
}

// NewOpenAIAnswerer wires the answer generator to a chat-completion model.
func NewOpenAIAnswerer(llm llms.Model, model string) *OpenAIAnswerer {
	return &OpenAIAnswerer{llm: llm, model: model}
}

// Answer asks the model to respond using only the provided notes. Provider
// errors propagate as ProviderError; an empty completion degrades to a
// fixed placeholder so callers always receive a non-empty string.
func (g *OpenAIAnswerer) Answer(ctx context.Context, query, notesContext string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, answerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Question:\n%s\n\nNotes:\n%s", query, notesContext)),
	}
	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithModel(g.model),
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(400),
	)
	if err != nil {
		return "", &ProviderError{Op: "generate", Err: err}
	}
	if len(resp.Choices) == 0 {
		return emptyCompletionFallback, nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Content)
	if answer == "" {
		return emptyCompletionFallback, nil
	}
	return answer, nil
}
