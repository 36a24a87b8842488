package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/resilience"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaProvider(config.ModelConfig{
		Provider: "ollama",
		Model:    "test-model",
		BaseURL:  srv.URL,
	})
}

func TestOllamaGenerateResponse(t *testing.T) {
	var gotReq ollamaGenerateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "analysis text"})
	})

	out, err := p.GenerateResponse(context.Background(), "analyze this", "you are an analyst", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "analysis text" {
		t.Errorf("expected response text, got %q", out)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", gotReq.Model)
	}
	if gotReq.System != "you are an analyst" {
		t.Errorf("system prompt not forwarded, got %q", gotReq.System)
	}
	if gotReq.Stream {
		t.Error("streaming must be disabled")
	}
}

func TestOllamaExtractContentAttachesDocument(t *testing.T) {
	var gotReq ollamaGenerateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "extracted"})
	})

	_, err := p.ExtractContent(context.Background(), "extract all figures", VisionInput{
		Text:     "Revenue: 100M",
		Document: []byte("%PDF-1.4 fake"),
		MIMEType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotReq.Images) != 1 {
		t.Fatalf("expected 1 inline image, got %d", len(gotReq.Images))
	}
}

func TestOllamaEmbedText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	})

	vec, err := p.EmbedText(context.Background(), "discount rates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
}

func TestOllamaTransientStatusIsRetryable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := p.GenerateResponse(context.Background(), "x", "", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var te *resilience.TransientError
	if !errors.As(err, &te) {
		t.Errorf("503 should surface as transient, got %v", err)
	}
}

func TestOllamaPermanentStatusIsNotRetryable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := p.GenerateResponse(context.Background(), "x", "", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if resilience.IsTransient(err) {
		t.Errorf("400 must not be classified transient: %v", err)
	}
}

func TestOllamaCheckAvailability(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"test-model"},{"name":"other"}]}`))
	})

	if err := p.CheckAvailability(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPreflightChecksSharedEndpointOnce(t *testing.T) {
	var tagHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			tagHits++
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"shared-model"},{"name":"embed-model"}]}`))
	}))
	t.Cleanup(srv.Close)

	shared := config.ModelConfig{Provider: "ollama", Model: "shared-model", BaseURL: srv.URL}
	embed := config.ModelConfig{Provider: "ollama", Model: "embed-model", BaseURL: srv.URL}

	m := &Manager{
		vision:     NewOllamaProvider(shared),
		completion: NewOllamaProvider(shared),
		embedder:   NewOllamaProvider(embed),
	}
	m.Preflight(context.Background())

	if tagHits != 2 {
		t.Errorf("tag list hit %d times, want 2 (shared roles deduplicated)", tagHits)
	}
}

func TestOllamaCheckAvailabilityMissingModel(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"other"}]}`))
	})

	if err := p.CheckAvailability(context.Background()); err == nil {
		t.Fatal("expected error for missing model")
	}
}
