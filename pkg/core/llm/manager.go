package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"finanalysis/pkg/core/config"
)

// Manager wires the three model roles to concrete providers based on the
// pipeline configuration.
type Manager struct {
	vision     VisionProvider
	completion Provider
	embedder   Embedder
}

// NewManager builds the providers for the vision, completion and embedding
// roles. Each role may point at a different backend.
func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	m := &Manager{}

	vision, err := buildProvider(ctx, cfg.VisionModel)
	if err != nil {
		return nil, fmt.Errorf("vision model: %w", err)
	}
	completion, err := buildProvider(ctx, cfg.CompletionModel)
	if err != nil {
		return nil, fmt.Errorf("completion model: %w", err)
	}
	embedding, err := buildProvider(ctx, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}

	var ok bool
	if m.vision, ok = vision.(VisionProvider); !ok {
		return nil, fmt.Errorf("provider %q does not support vision extraction", cfg.VisionModel.Provider)
	}
	if m.completion, ok = completion.(Provider); !ok {
		return nil, fmt.Errorf("provider %q does not support completion", cfg.CompletionModel.Provider)
	}
	if m.embedder, ok = embedding.(Embedder); !ok {
		return nil, fmt.Errorf("provider %q does not support embeddings", cfg.EmbeddingModel.Provider)
	}

	return m, nil
}

// Vision returns the provider for document extraction calls.
func (m *Manager) Vision() VisionProvider { return m.vision }

// Completion returns the provider for analysis stage calls.
func (m *Manager) Completion() Provider { return m.completion }

// Embedder returns the provider for embedding calls.
func (m *Manager) Embedder() Embedder { return m.embedder }

// Preflight checks model availability where the backend supports it.
// Failures are logged as warnings only; the retry policy covers transient
// startup conditions. Roles sharing an endpoint and model are checked once.
func (m *Manager) Preflight(ctx context.Context) {
	seen := map[string]bool{}
	for _, p := range []interface{}{m.vision, m.completion, m.embedder} {
		op, ok := p.(*OllamaProvider)
		if !ok {
			continue
		}
		key := op.baseURL + "|" + op.model
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := op.CheckAvailability(ctx); err != nil {
			zap.L().Warn("model preflight failed", zap.Error(err))
		}
	}
}

func buildProvider(ctx context.Context, mc config.ModelConfig) (interface{}, error) {
	switch mc.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, mc)
	case "ollama", "":
		return NewOllamaProvider(mc), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", mc.Provider)
	}
}
