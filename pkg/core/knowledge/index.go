package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/llm"
	"finanalysis/pkg/core/resilience"
)

// Index is the in-memory similarity index over the valuation-parameters
// document. Safe for concurrent queries after ingestion completes.
type Index struct {
	embedder llm.Embedder
	cfg      config.KnowledgeConfig
	retry    resilience.Policy

	mu       sync.RWMutex
	chunks   []Chunk
	source   string
	chars    int
	degraded bool
}

// NewIndex creates an empty index. Ingest populates it.
func NewIndex(embedder llm.Embedder, cfg config.KnowledgeConfig, retry resilience.Policy) *Index {
	return &Index{embedder: embedder, cfg: cfg, retry: retry}
}

// Ingest chunks and embeds the document text. An embedding failure after
// retries empties the index and marks it degraded; the error is returned for
// logging but the caller is expected to proceed without retrieved guidance.
func (ix *Index) Ingest(ctx context.Context, text string, source string) error {
	chunks := SplitText(text, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap)

	chars := 0
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chars += len(chunks[i].Text)

		vec, err := resilience.DoVal(ctx, ix.retry, "embed-chunk", func(ctx context.Context) ([]float32, error) {
			return ix.embedder.EmbedText(ctx, chunks[i].Text)
		})
		if err != nil {
			ix.mu.Lock()
			ix.chunks = nil
			ix.source = source
			ix.degraded = true
			ix.mu.Unlock()
			return fmt.Errorf("knowledge ingestion degraded: %w", err)
		}
		chunks[i].Embedding = vec
	}

	ix.mu.Lock()
	ix.chunks = chunks
	ix.source = source
	ix.chars = chars
	ix.degraded = false
	ix.mu.Unlock()

	zap.L().Info("valuation knowledge indexed",
		zap.String("source", source),
		zap.Int("chunks", len(chunks)),
		zap.Int("characters", chars))
	return nil
}

// Query returns the top-k chunks by cosine similarity to the query. When the
// query embedding fails after retries it falls back to keyword matching, and
// returns an empty result rather than an error if that finds nothing either.
func (ix *Index) Query(ctx context.Context, query string, k int) []Chunk {
	ix.mu.RLock()
	chunks := ix.chunks
	ix.mu.RUnlock()

	if len(chunks) == 0 || k <= 0 {
		return nil
	}

	qvec, err := resilience.DoVal(ctx, ix.retry, "embed-query", func(ctx context.Context) ([]float32, error) {
		return ix.embedder.EmbedText(ctx, query)
	})
	if err != nil {
		zap.L().Warn("query embedding failed, falling back to keyword search",
			zap.String("query", query), zap.Error(err))
		return ix.keywordSearch(query, k)
	}

	type scored struct {
		chunk Chunk
		score float64
	}
	results := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, scored{chunk: c, score: cosineSimilarity(qvec, c.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if k > len(results) {
		k = len(results)
	}
	top := make([]Chunk, k)
	for i := 0; i < k; i++ {
		top[i] = results[i].chunk
	}
	return top
}

// FormatResults renders retrieved chunks as prompt context, matching the
// sectioned layout downstream stage prompts expect.
func FormatResults(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&sb, "--- Relevant Section %d ---\n%s\n\n", i+1, c.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Stats returns counts describing the indexed content.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{
		Source:     ix.source,
		Chunks:     len(ix.chunks),
		Characters: ix.chars,
		Degraded:   ix.degraded,
	}
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

func (ix *Index) keywordSearch(query string, k int) []Chunk {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		chunk Chunk
		hits  int
	}
	var results []scored
	for _, c := range ix.chunks {
		lower := strings.ToLower(c.Text)
		hits := 0
		for _, term := range terms {
			hits += strings.Count(lower, term)
		}
		if hits > 0 {
			results = append(results, scored{chunk: c, hits: hits})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].hits > results[j].hits })

	if k > len(results) {
		k = len(results)
	}
	top := make([]Chunk, k)
	for i := 0; i < k; i++ {
		top[i] = results[i].chunk
	}
	return top
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
