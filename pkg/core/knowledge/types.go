// Package knowledge makes the valuation-parameters document queryable by
// semantic similarity. The index is built once per run, read-only afterwards,
// and degrades to keyword search or an empty result set when the embedding
// service fails. It never aborts the run.
package knowledge

// Chunk is a segment of the valuation-parameters document with its embedding
// vector. Chunks are never mutated after ingestion.
type Chunk struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Offset int    `json:"offset"` // character offset in the source text

	// Embedding is kept out of JSON output.
	Embedding []float32 `json:"-"`
}

// Stats describes the indexed content.
type Stats struct {
	Source     string `json:"source"`
	Chunks     int    `json:"chunks"`
	Characters int    `json:"characters"`
	Degraded   bool   `json:"degraded"`
}
