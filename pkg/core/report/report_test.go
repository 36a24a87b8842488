package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finanalysis/pkg/core/extract"
	"finanalysis/pkg/core/knowledge"
	"finanalysis/pkg/core/pipeline"
)

func completedRun() *pipeline.AnalysisRun {
	run := pipeline.NewRun("Acme Corp")
	run.CreatedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	run.Records = []extract.Record{{
		DocumentID: "doc-1",
		Name:       "annual_2024.pdf",
		PageCount:  12,
		Batches:    []extract.BatchResult{{FirstPage: 1, LastPage: 12, Content: "data"}},
	}}
	run.Verdict = pipeline.Verdict{Rating: "BUY", RawRating: "STRONG BUY", Conviction: "High"}

	run.Context.Append(pipeline.StageExtraction, "Financial Data Extraction", "Revenue $10M")
	run.Context.Append(pipeline.StageBusiness, "Business Model Analysis", "Subscription software vendor")
	run.Context.Append(pipeline.StageGrowth, "Growth and KPI Analysis", "Revenue grew 20% YoY")
	run.Context.Append(pipeline.StageValuation, "Valuation Analysis", "Fair value estimate $42")
	run.Context.Append(pipeline.StageRecommendation, "Investment Recommendation",
		"Thesis points.\n\n4. KEY RISKS\n- Customer concentration\n\n5. VALUATION PERSPECTIVE\nUpside 30%")
	run.Stage = pipeline.StageRecommendation
	return run
}

func TestBuildContainsFixedSections(t *testing.T) {
	out, err := NewSynthesizer().Build(completedRun())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, section := range []string{
		"## Executive Summary",
		"## Business Overview",
		"## Financial Metrics",
		"## Growth Analysis",
		"## Valuation",
		"## Recommendation",
		"## Risk Factors",
		"## Methodology",
		"## Disclaimer",
	} {
		if !strings.Contains(out, section) {
			t.Errorf("report missing section %q", section)
		}
	}

	for _, want := range []string{
		"Acme Corp",
		"2025-03-14 09:30:00 UTC",
		"annual_2024.pdf, 12 pages",
		"**BUY**",
		"STRONG BUY",
		"Customer concentration",
		"Report ID: Acme_Corp_20250314_093000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(out, "## Caveats") {
		t.Error("clean run should not carry a caveats section")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	run := completedRun()
	s := NewSynthesizer()
	a, err := s.Build(run)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Build(run)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("identical runs must render identical reports")
	}
}

func TestBuildCaveatsOnDegradation(t *testing.T) {
	run := completedRun()
	run.Records[0].Degraded = true
	run.Knowledge = knowledge.Stats{Degraded: true}

	out, err := NewSynthesizer().Build(run)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "## Caveats") {
		t.Fatal("degraded run must carry a caveats section")
	}
	if !strings.Contains(out, "partial content") || !strings.Contains(out, "could not be indexed") {
		t.Errorf("caveats incomplete:\n%s", out)
	}
	if !strings.Contains(out, "(partial: some pages could not be extracted)") {
		t.Error("degraded document not marked in the document list")
	}
}

func TestBuildPlaceholdersForMissingStages(t *testing.T) {
	run := pipeline.NewRun("Acme Corp")
	out, err := NewSynthesizer().Build(run)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "_No content was produced for this section._") {
		t.Error("empty stages should render placeholders")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":         "Acme_Corp",
		"Ünïcode & Co. Ltd": "n_code___Co__Ltd",
		"---":               "---",
		"":                  "company",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriterWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	run := completedRun()
	run.Report = "report body"

	path, err := NewWriter(filepath.Join(dir, "out")).Write(run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "report body" {
		t.Errorf("wrong content: %q", data)
	}
	if !strings.HasSuffix(path, "investment_report_Acme_Corp_20250314_093000.md") {
		t.Errorf("unexpected filename: %s", path)
	}
}

func TestWriterPersistenceError(t *testing.T) {
	dir := t.TempDir()
	// A file where the output directory should be forces a mkdir failure.
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	run := completedRun()
	run.Report = "report body"

	_, err := NewWriter(blocked).Write(run)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error is %T, want *PersistenceError", err)
	}
}
