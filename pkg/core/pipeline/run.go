package pipeline

import (
	"time"

	"github.com/google/uuid"

	"finanalysis/pkg/core/extract"
	"finanalysis/pkg/core/knowledge"
)

// Verdict is the normalized investment recommendation pulled from the
// Recommendation stage output.
type Verdict struct {
	Rating     string `json:"rating"`     // BUY, HOLD, or SELL
	RawRating  string `json:"raw_rating"` // as the model wrote it, e.g. STRONG BUY
	Conviction string `json:"conviction"` // High, Medium, or Low
}

// AnalysisRun is the full state of one end-to-end analysis.
type AnalysisRun struct {
	ID        string
	Company   string
	CreatedAt time.Time

	Records   []extract.Record
	Knowledge knowledge.Stats

	Context StageContext
	Stage   Stage
	Verdict Verdict

	Report        string
	FailureReason string
}

// NewRun creates a run in its initial state.
func NewRun(company string) *AnalysisRun {
	return &AnalysisRun{
		ID:        uuid.New().String(),
		Company:   company,
		CreatedAt: time.Now().UTC(),
	}
}

// ExtractionDegraded reports whether any document lost pages during
// extraction.
func (r *AnalysisRun) ExtractionDegraded() bool {
	for _, rec := range r.Records {
		if rec.Degraded {
			return true
		}
	}
	return false
}
