package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"secondbrain/models"
)

// Classifier decides whether free text is a new note or a question.
type Classifier interface {
	Classify(ctx context.Context, input string) (models.RouteDecision, error)
}

// IntentClassifier asks the chat model for a structured intent decision.
// Transport failures propagate as ProviderError; content that fails to
// parse is silently coerced to the query intent, because guessing wrong on
// ingestion would corrupt the note store.
type IntentClassifier struct {
	llm   llms.Model
	model string
}

// NewIntentClassifier wires the classifier to a chat-completion model.
func NewIntentClassifier(llm llms.Model, model string) *IntentClassifier {
	return &IntentClassifier{llm: llm, model: model}
}

func (c *IntentClassifier) Classify(ctx context.Context, input string) (models.RouteDecision, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, classifierSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(classifierUserPrompt, input)),
	}
	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithModel(c.model),
		llms.WithTemperature(0),
		llms.WithMaxTokens(100),
		llms.WithJSONMode(),
	)
	if err != nil {
		return models.RouteDecision{}, &ProviderError{Op: "classify", Err: err}
	}
	if len(resp.Choices) == 0 {
		logrus.Warn("SERVICE: classifier returned no choices, falling back to query intent")
		return fallbackDecision(), nil
	}
	return ParseRouteDecision(resp.Choices[0].Content), nil
}

// ParseRouteDecision parses raw classifier output. Unparseable content or an
// unknown intent yields the safe default: query intent, nil fields.
func ParseRouteDecision(raw string) models.RouteDecision {
	var decision models.RouteDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		logrus.Warnf("SERVICE: classifier output not parseable, falling back to query intent: %v", err)
		return fallbackDecision()
	}
	if decision.Intent != models.IntentIngest && decision.Intent != models.IntentQuery {
		return fallbackDecision()
	}
	return decision
}

func fallbackDecision() models.RouteDecision {
	return models.RouteDecision{Intent: models.IntentQuery}
}
