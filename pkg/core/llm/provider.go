// Package llm abstracts the external model services the pipeline depends on:
// a completion model for analysis stages, a vision-capable model for document
// extraction, and an embedding model for the valuation knowledge index.
package llm

import (
	"context"
)

// Provider is the interface for completion-model calls.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// VisionInput carries the material for one vision extraction call. Text holds
// page text already read locally; Document carries raw bytes for image-only
// pages that need true vision reading.
type VisionInput struct {
	Text     string
	Document []byte
	MIMEType string
}

// VisionProvider is the interface for vision-capable extraction calls.
type VisionProvider interface {
	ExtractContent(ctx context.Context, prompt string, input VisionInput) (string, error)
}

// Embedder is the interface for embedding-model calls.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
