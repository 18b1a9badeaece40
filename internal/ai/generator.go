package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Generator is the single seam to the generative model. It is invoked
// exactly once per chat turn and once per receipt extraction; retry policy
// belongs to callers (and today there is none).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls Gemini through the genai client. Construct it once
// at process start and pass it to the services that need it.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator builds a client using ambient credentials
// (GEMINI_API_KEY or Application Default Credentials).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}

	return text, nil
}

var _ Generator = (*GeminiGenerator)(nil)
