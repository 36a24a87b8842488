package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/document"
	"finanalysis/pkg/core/extract"
	"finanalysis/pkg/core/knowledge"
)

type mockExtractor struct {
	records []extract.Record
	err     error
}

func (m *mockExtractor) ExtractAll(ctx context.Context, docs []document.Document) ([]extract.Record, error) {
	return m.records, m.err
}

type mockIndex struct {
	chunks    []knowledge.Chunk
	ingestErr error
	ingested  []string
	queried   []string
	degraded  bool
}

func (m *mockIndex) Ingest(ctx context.Context, text, source string) error {
	if m.ingestErr != nil {
		m.degraded = true
		return m.ingestErr
	}
	m.ingested = append(m.ingested, source)
	return nil
}

func (m *mockIndex) Query(ctx context.Context, query string, k int) []knowledge.Chunk {
	m.queried = append(m.queried, query)
	return m.chunks
}

func (m *mockIndex) Stats() knowledge.Stats {
	return knowledge.Stats{Chunks: len(m.chunks), Degraded: m.degraded}
}

func (m *mockIndex) Len() int { return len(m.chunks) }

type mockCompletion struct {
	generateFunc func(ctx context.Context, prompt, system string) (string, error)
	prompts      []string
}

func (m *mockCompletion) GenerateResponse(ctx context.Context, prompt, system string, options map[string]interface{}) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, prompt, system)
	}
	return "analysis output", nil
}

type mockBuilder struct {
	err error
}

func (m *mockBuilder) Build(run *AnalysisRun) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "# Report for " + run.Company, nil
}

type mockRepo struct {
	saved []*AnalysisRun
	err   error
}

func (m *mockRepo) SaveRun(ctx context.Context, run *AnalysisRun) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, run)
	return nil
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	return cfg
}

func records(degraded bool) []extract.Record {
	return []extract.Record{{
		DocumentID: "doc-1",
		Name:       "annual_2024.pdf",
		PageCount:  4,
		Degraded:   degraded,
		Batches: []extract.BatchResult{
			{Index: 0, FirstPage: 1, LastPage: 2, Content: "Revenue $10M, net income $2M"},
			{Index: 1, FirstPage: 3, LastPage: 4, Content: "Cash flow from operations $3M", Failed: degraded},
		},
	}}
}

// testDocs returns a document set without a valuation document; ingestion of
// a real valuation PDF is covered by the knowledge package tests.
func testDocs() document.Set {
	return document.Set{
		Financial: []document.Document{{ID: "doc-1", Name: "annual_2024.pdf", Kind: document.KindPDF}},
	}
}

func TestRunHappyPath(t *testing.T) {
	ext := &mockExtractor{records: records(false)}
	ix := &mockIndex{chunks: []knowledge.Chunk{{Text: "Use WACC of 9% for DCF"}}}
	comp := &mockCompletion{
		generateFunc: func(ctx context.Context, prompt, system string) (string, error) {
			if strings.Contains(prompt, "INVESTMENT RATING") {
				return `The verdict stands. {"rating": "BUY", "conviction": "High"}`, nil
			}
			return "analysis output", nil
		},
	}

	o := NewOrchestrator(ext, ix, comp, &mockBuilder{}, fastConfig())
	repo := &mockRepo{}
	o.SetRepository(repo)

	run, err := o.Run(context.Background(), "Acme Corp", testDocs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Stage != StageReportReady {
		t.Errorf("stage = %s, want %s", run.Stage, StageReportReady)
	}
	// Data organization plus the four analysis stages.
	if run.Context.Len() != 5 {
		t.Errorf("context has %d entries, want 5", run.Context.Len())
	}
	wantOrder := []Stage{StageExtraction, StageBusiness, StageGrowth, StageValuation, StageRecommendation}
	for i, e := range run.Context.Entries() {
		if e.Stage != wantOrder[i] {
			t.Errorf("entry %d stage = %s, want %s", i, e.Stage, wantOrder[i])
		}
	}
	if run.Verdict.Rating != "BUY" || run.Verdict.Conviction != "High" {
		t.Errorf("unexpected verdict: %+v", run.Verdict)
	}
	if !strings.Contains(run.Report, "Acme Corp") {
		t.Errorf("report not built: %q", run.Report)
	}
	if len(repo.saved) != 1 {
		t.Error("run not persisted")
	}
	if len(ix.queried) != 1 {
		t.Errorf("index queried %d times, want 1", len(ix.queried))
	}
	// Retrieved parameters must reach the valuation prompt.
	found := false
	for _, p := range comp.prompts {
		if strings.Contains(p, "WACC of 9%") {
			found = true
		}
	}
	if !found {
		t.Error("retrieved parameters missing from valuation prompt")
	}
}

func TestRunStageFailureIsFatal(t *testing.T) {
	ext := &mockExtractor{records: records(false)}
	comp := &mockCompletion{
		generateFunc: func(ctx context.Context, prompt, system string) (string, error) {
			if strings.Contains(prompt, "growth trajectory") {
				return "", errors.New("model unavailable")
			}
			return "ok", nil
		},
	}

	o := NewOrchestrator(ext, &mockIndex{}, comp, &mockBuilder{}, fastConfig())
	run, err := o.Run(context.Background(), "Acme Corp", testDocs())
	if err == nil {
		t.Fatal("expected stage failure")
	}

	var sf *StageFailure
	if !errors.As(err, &sf) {
		t.Fatalf("error is %T, want *StageFailure", err)
	}
	if sf.Stage != StageGrowth {
		t.Errorf("failed stage = %s, want %s", sf.Stage, StageGrowth)
	}
	if run.FailureReason == "" {
		t.Error("failure reason not recorded")
	}
	// Earlier stage output is preserved, later stages never ran.
	if _, ok := run.Context.Get(StageBusiness); !ok {
		t.Error("completed business analysis should remain in context")
	}
	if _, ok := run.Context.Get(StageValuation); ok {
		t.Error("valuation must not run after a growth stage failure")
	}
}

func TestRunWithoutValuationDocument(t *testing.T) {
	ext := &mockExtractor{records: records(false)}
	ix := &mockIndex{} // empty: no valuation document was ingested
	comp := &mockCompletion{}

	o := NewOrchestrator(ext, ix, comp, &mockBuilder{}, fastConfig())
	run, err := o.Run(context.Background(), "Acme Corp", testDocs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Stage != StageReportReady {
		t.Errorf("run did not complete: %s", run.Stage)
	}

	found := false
	for _, p := range comp.prompts {
		if strings.Contains(p, "No valuation parameters document was provided") {
			found = true
		}
	}
	if !found {
		t.Error("fallback parameters note missing from valuation prompt")
	}
	if len(ix.queried) != 0 {
		t.Error("empty index should not be queried")
	}
}

func TestRunProceedsWhenExtractionDegraded(t *testing.T) {
	ext := &mockExtractor{records: records(true)}
	o := NewOrchestrator(ext, &mockIndex{}, &mockCompletion{}, &mockBuilder{}, fastConfig())

	run, err := o.Run(context.Background(), "Acme Corp", testDocs())
	if err != nil {
		t.Fatalf("degraded extraction must not abort the run: %v", err)
	}
	if !run.ExtractionDegraded() {
		t.Error("degradation flag lost")
	}
	if run.Stage != StageReportReady {
		t.Errorf("run did not complete: %s", run.Stage)
	}
}

func TestRunExtractionErrorIsFatal(t *testing.T) {
	ext := &mockExtractor{err: errors.New("context canceled")}
	o := NewOrchestrator(ext, &mockIndex{}, &mockCompletion{}, &mockBuilder{}, fastConfig())

	if _, err := o.Run(context.Background(), "Acme Corp", testDocs()); err == nil {
		t.Fatal("expected error when extraction aborts")
	}
}

func TestRunRepositoryFailureDoesNotAbort(t *testing.T) {
	ext := &mockExtractor{records: records(false)}
	o := NewOrchestrator(ext, &mockIndex{}, &mockCompletion{}, &mockBuilder{}, fastConfig())
	o.SetRepository(&mockRepo{err: errors.New("db down")})

	run, err := o.Run(context.Background(), "Acme Corp", testDocs())
	if err != nil {
		t.Fatalf("persistence failure must not fail the run: %v", err)
	}
	if run.Stage != StageReportReady {
		t.Errorf("run did not complete: %s", run.Stage)
	}
}
