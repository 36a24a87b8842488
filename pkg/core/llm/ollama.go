package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/resilience"
)

// OllamaProvider talks to an Ollama-compatible endpoint over plain HTTP.
// It serves all three model roles: completion, vision and embeddings.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

var (
	_ Provider       = (*OllamaProvider)(nil)
	_ VisionProvider = (*OllamaProvider)(nil)
	_ Embedder       = (*OllamaProvider)(nil)
)

// NewOllamaProvider creates a provider for the configured endpoint and model.
func NewOllamaProvider(mc config.ModelConfig) *OllamaProvider {
	base := mc.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	return &OllamaProvider{
		baseURL: base,
		model:   mc.Model,
		client:  &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Images  []string               `json:"images,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// GenerateResponse calls /api/generate with the prompt and system prompt.
func (p *OllamaProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	model := p.model
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	temperature := 0.1
	if val, ok := options["temperature"].(float64); ok {
		temperature = val
	}

	req := ollamaGenerateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  systemPrompt,
		Stream:  false,
		Options: map[string]interface{}{"temperature": temperature},
	}

	var resp ollamaGenerateResponse
	if err := p.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ExtractContent calls /api/generate with the extraction prompt, inlining the
// page text and attaching the raw document as a base64 image payload so the
// vision model can read image-only pages.
func (p *OllamaProvider) ExtractContent(ctx context.Context, prompt string, input VisionInput) (string, error) {
	full := prompt
	if input.Text != "" {
		full = prompt + "\n\n" + input.Text
	}

	req := ollamaGenerateRequest{
		Model:   p.model,
		Prompt:  full,
		Stream:  false,
		Options: map[string]interface{}{"temperature": 0.0},
	}
	if len(input.Document) > 0 {
		req.Images = []string{base64.StdEncoding.EncodeToString(input.Document)}
	}

	var resp ollamaGenerateResponse
	if err := p.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// EmbedText calls /api/embeddings and converts the vector to float32.
func (p *OllamaProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	req := ollamaEmbeddingRequest{Model: p.model, Prompt: text}

	var resp ollamaEmbeddingResponse
	if err := p.post(ctx, "/api/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embedding returned no values")
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// CheckAvailability verifies the endpoint is reachable and the model is
// pulled. Used as a preflight before the pipeline starts.
func (p *OllamaProvider) CheckAvailability(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not connect to ollama at %s: %w", p.baseURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama tag list failed: status %d", res.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to parse ollama tag list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == p.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found on ollama instance, pull it first", p.model)
}

func (p *OllamaProvider) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama call failed: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read ollama response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		err := fmt.Errorf("ollama error: status=%d body=%s", res.StatusCode, string(respBody))
		if resilience.IsTransientStatus(res.StatusCode) {
			return resilience.NewTransientError(err, res.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse ollama response: %w", err)
	}
	return nil
}
