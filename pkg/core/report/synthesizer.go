// Package report renders a completed analysis run into the investment report
// artifact and persists it.
package report

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"finanalysis/pkg/core/pipeline"
	"finanalysis/pkg/core/utils"
)

const timestampLayout = "2006-01-02 15:04:05"
const idLayout = "20060102_150405"

// Synthesizer assembles the fixed-section report from the run's stage
// context. The output is fully determined by the run: identical runs render
// identical reports.
type Synthesizer struct{}

// NewSynthesizer returns a report synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Build renders the report. Every section is always present; sections whose
// stage produced nothing carry an explicit placeholder.
func (s *Synthesizer) Build(run *pipeline.AnalysisRun) (string, error) {
	if run == nil {
		return "", fmt.Errorf("cannot build report from nil run")
	}

	var b strings.Builder

	b.WriteString("# Financial Analysis & Investment Report\n\n")
	fmt.Fprintf(&b, "**Company:** %s\n", run.Company)
	fmt.Fprintf(&b, "**Report Generated:** %s UTC\n", run.CreatedAt.Format(timestampLayout))
	fmt.Fprintf(&b, "**Recommendation:** %s\n\n", run.Verdict.Rating)

	b.WriteString("## Documents Analyzed\n\n")
	if len(run.Records) == 0 {
		b.WriteString("- none\n")
	}
	for _, rec := range run.Records {
		note := ""
		if rec.Degraded {
			note = " (partial: some pages could not be extracted)"
		}
		fmt.Fprintf(&b, "- %s, %d pages%s\n", rec.Name, rec.PageCount, note)
	}
	b.WriteString("\n")

	writeSection(&b, "Executive Summary", s.executiveSummary(run))
	writeSection(&b, "Business Overview", stageSection(run, pipeline.StageBusiness))
	writeSection(&b, "Financial Metrics", stageSection(run, pipeline.StageExtraction))
	writeSection(&b, "Growth Analysis", stageSection(run, pipeline.StageGrowth))
	writeSection(&b, "Valuation", stageSection(run, pipeline.StageValuation))
	writeSection(&b, "Recommendation", stageSection(run, pipeline.StageRecommendation))
	writeSection(&b, "Risk Factors", s.riskFactors(run))

	if caveats := s.caveats(run); caveats != "" {
		writeSection(&b, "Caveats", caveats)
	}

	b.WriteString("## Methodology\n\n")
	b.WriteString(`This analysis was produced by a staged model pipeline:

1. Document extraction - vision model extraction of financial documents
2. Business analysis - business model, revenue streams, and positioning
3. Growth analysis - growth rates, KPIs, and pricing power
4. Valuation - multiple-based and intrinsic value approaches using the supplied valuation parameters
5. Recommendation - synthesis into an actionable rating

Valuation parameters were retrieved from the valuation document via embedding similarity search.
`)
	b.WriteString("\n## Disclaimer\n\n")
	b.WriteString(`This report is generated by an automated analysis system for informational purposes only and should NOT be considered financial advice, an investment recommendation, or a substitute for professional financial consultation. Automated analysis may contain errors or omissions; market conditions change rapidly; past performance does not guarantee future results. Always consult qualified financial advisors and consider your own risk tolerance before investing. The operators of this system assume no liability for investment decisions made based on this report.
`)

	fmt.Fprintf(&b, "\n---\n\nReport ID: %s_%s\n",
		sanitizeName(run.Company), run.CreatedAt.Format(idLayout))

	out := b.String()
	if !utils.ValidateMarkdown(out) {
		zap.L().Warn("report failed markdown validation", zap.String("run_id", run.ID))
	}
	return out, nil
}

func writeSection(b *strings.Builder, title, content string) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if strings.TrimSpace(content) == "" {
		content = "_No content was produced for this section._"
	}
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n\n")
}

func stageSection(run *pipeline.AnalysisRun, stage pipeline.Stage) string {
	content, _ := run.Context.Get(stage)
	return content
}

func (s *Synthesizer) executiveSummary(run *pipeline.AnalysisRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The analysis concludes with a **%s** rating", run.Verdict.Rating)
	if run.Verdict.RawRating != "" && run.Verdict.RawRating != run.Verdict.Rating {
		fmt.Fprintf(&b, " (model verdict: %s)", run.Verdict.RawRating)
	}
	if run.Verdict.Conviction != "" {
		fmt.Fprintf(&b, " with %s conviction", strings.ToLower(run.Verdict.Conviction))
	}
	b.WriteString(".")
	return b.String()
}

// riskFactors lifts the risk discussion out of the recommendation output
// when the model used the expected heading, otherwise points at it.
func (s *Synthesizer) riskFactors(run *pipeline.AnalysisRun) string {
	rec, ok := run.Context.Get(pipeline.StageRecommendation)
	if !ok {
		return ""
	}
	upper := strings.ToUpper(rec)
	start := strings.Index(upper, "KEY RISKS")
	if start < 0 {
		return "See the Recommendation section for the risk discussion."
	}
	rest := rec[start:]
	// Cut at the next numbered heading if present.
	if end := strings.Index(rest[1:], "\n5."); end >= 0 {
		rest = rest[:end+1]
	}
	return rest
}

func (s *Synthesizer) caveats(run *pipeline.AnalysisRun) string {
	var notes []string
	if run.ExtractionDegraded() {
		notes = append(notes, "- Some document pages could not be extracted; the analysis is based on partial content.")
	}
	if run.Knowledge.Degraded {
		notes = append(notes, "- The valuation parameters document could not be indexed; standard methodologies were applied instead.")
	}
	return strings.Join(notes, "\n")
}

// sanitizeName makes a company name safe for filenames and report IDs.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "company"
	}
	return out
}
