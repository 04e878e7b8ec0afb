package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"famfin-server/src/pipeline"

	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

// Gemini turns prompts into short text completions. It satisfies the
// analytics Completer.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", &pipeline.AIProviderError{Err: fmt.Errorf("generate content: %w", err)}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &pipeline.AIProviderError{Err: errors.New("empty response from model")}
	}
	return text, nil
}
