// Package pipeline orchestrates the analysis run: document extraction and
// parameter ingestion up front, then a fixed forward-only stage sequence over
// an append-only context, ending in a report.
package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage identifies a checkpoint in the analysis run.
type Stage string

const (
	StageExtraction     Stage = "Extraction-Complete"
	StageBusiness       Stage = "Business-Analysis"
	StageGrowth         Stage = "Growth-Analysis"
	StageValuation      Stage = "Valuation"
	StageRecommendation Stage = "Recommendation"
	StageReportReady    Stage = "Report-Ready"
)

// AnalysisStages is the fixed forward-only execution order. Stages never run
// out of order and never re-run within one analysis.
var AnalysisStages = []Stage{
	StageBusiness,
	StageGrowth,
	StageValuation,
	StageRecommendation,
}

// StageFailure is the fatal error produced when a stage exhausts its retry
// budget. The run stops at the named stage.
type StageFailure struct {
	Stage Stage
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// ContextEntry is one completed stage's contribution to the shared context.
type ContextEntry struct {
	Stage     Stage     `json:"stage"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// StageContext accumulates stage outputs. Entries are append-only: completed
// stage output is never edited or removed by later stages.
type StageContext struct {
	mu      sync.RWMutex
	entries []ContextEntry
}

// Append records a stage's output.
func (c *StageContext) Append(stage Stage, title, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, ContextEntry{
		Stage:     stage,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// Entries returns a copy of the accumulated entries in append order.
func (c *StageContext) Entries() []ContextEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ContextEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get returns the content of the first entry for a stage.
func (c *StageContext) Get(stage Stage) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.Stage == stage {
			return e.Content, true
		}
	}
	return "", false
}

// Combined renders all entries into the context block passed to later
// stages, in the order they were produced.
func (c *StageContext) Combined() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(e.Title)
		b.WriteString("\n\n")
		b.WriteString(e.Content)
	}
	return b.String()
}

// Len returns the number of entries.
func (c *StageContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
