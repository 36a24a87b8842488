package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"finanalysis/pkg/core/config"
)

// GeminiProvider implements Provider, VisionProvider and Embedder against the
// Gemini API using the official GenAI SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

var (
	_ Provider       = (*GeminiProvider)(nil)
	_ VisionProvider = (*GeminiProvider)(nil)
	_ Embedder       = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a provider bound to the configured model. The
// API key comes from the config struct, never from ambient environment.
func NewGeminiProvider(ctx context.Context, mc config.ModelConfig) (*GeminiProvider, error) {
	if mc.APIKey == "" {
		return nil, fmt.Errorf("gemini provider requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  mc.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: mc.Model}, nil
}

// GenerateResponse sends a generateContent request for a text prompt.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	model := p.model
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if val, ok := options["response_format"].(string); ok && val == "json" {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return result.Text(), nil
}

// ExtractContent submits the extraction prompt together with page text and,
// for image-only pages, the raw document bytes as an inline part.
func (p *GeminiProvider) ExtractContent(ctx context.Context, prompt string, input VisionInput) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if strings.TrimSpace(input.Text) != "" {
		parts = append(parts, &genai.Part{Text: input.Text})
	}
	if len(input.Document) > 0 {
		mime := input.MIMEType
		if mime == "" {
			mime = "application/pdf"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mime, Data: input.Document},
		})
	}

	contents := []*genai.Content{{Parts: parts, Role: "user"}}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini vision extraction failed: %w", err)
	}
	return result.Text(), nil
}

// EmbedText returns the embedding vector for a text span.
func (p *GeminiProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	result, err := p.client.Models.EmbedContent(ctx, p.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embedding returned no values")
	}
	return result.Embeddings[0].Values, nil
}
