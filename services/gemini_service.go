package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiAnswerer is the alternative answer backend over Google Gemini,
// selected with GENERATION_BACKEND=gemini. It honors the same contract as
// the OpenAI answerer: note-constrained answers, never an empty string.
type GeminiAnswerer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnswerer wires the answer generator to a Gemini client.
func NewGeminiAnswerer(client *genai.Client, model string) *GeminiAnswerer {
	return &GeminiAnswerer{client: client, model: model}
}

func (g *GeminiAnswerer) Answer(ctx context.Context, query, notesContext string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: systemContent(answerSystemPrompt),
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   400,
	}
	prompt := fmt.Sprintf("Question:\n%s\n\nNotes:\n%s", query, notesContext)
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", &ProviderError{Op: "generate", Err: err}
	}
	answer := strings.TrimSpace(result.Text())
	if answer == "" {
		return emptyCompletionFallback, nil
	}
	return answer, nil
}

func systemContent(prompt string) *genai.Content {
	contents := genai.Text(prompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}
