package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/document"
	"finanalysis/pkg/core/extract"
	"finanalysis/pkg/core/knowledge"
	"finanalysis/pkg/core/llm"
	"finanalysis/pkg/core/prompt"
	"finanalysis/pkg/core/resilience"
	"finanalysis/pkg/core/utils"
)

// parameterQuery is the fixed retrieval query used to pull methodology
// sections out of the valuation parameters document for the Valuation stage.
const parameterQuery = "valuation methodology discount rate WACC multiples P/E EV/EBITDA benchmarks assumptions"

// noParametersNote stands in for retrieved parameters when no valuation
// document was provided or its ingestion degraded.
const noParametersNote = "No valuation parameters document was provided. Apply standard methodologies (DCF with reasonable assumptions, common industry multiples) and state your assumptions explicitly."

// DocumentExtractor turns loaded documents into extraction records.
type DocumentExtractor interface {
	ExtractAll(ctx context.Context, docs []document.Document) ([]extract.Record, error)
}

// ParameterIndex is the retrieval index over the valuation parameters
// document.
type ParameterIndex interface {
	Ingest(ctx context.Context, text, source string) error
	Query(ctx context.Context, query string, k int) []knowledge.Chunk
	Stats() knowledge.Stats
	Len() int
}

// ReportBuilder renders a completed run into the report artifact.
type ReportBuilder interface {
	Build(run *AnalysisRun) (string, error)
}

// RunRepository persists completed runs. Optional.
type RunRepository interface {
	SaveRun(ctx context.Context, run *AnalysisRun) error
}

// Orchestrator manages the end-to-end flow: extraction and parameter
// ingestion in parallel, then the analysis stages in order, then synthesis.
type Orchestrator struct {
	extractor  DocumentExtractor
	index      ParameterIndex
	completion llm.Provider
	builder    ReportBuilder
	repo       RunRepository

	retry       resilience.Policy
	callTimeout time.Duration
	topK        int
}

// NewOrchestrator creates an orchestrator with all required collaborators.
func NewOrchestrator(extractor DocumentExtractor, index ParameterIndex, completion llm.Provider, builder ReportBuilder, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		extractor:   extractor,
		index:       index,
		completion:  completion,
		builder:     builder,
		retry:       resilience.FromConfig(cfg.Retry),
		callTimeout: cfg.Retry.CallTimeout,
		topK:        cfg.Knowledge.TopK,
	}
}

// SetRepository injects an optional persistence layer.
func (o *Orchestrator) SetRepository(repo RunRepository) {
	o.repo = repo
}

// Run executes the full analysis for one company. Extraction or ingestion
// degradation never aborts the run; a stage exhausting its retries does,
// returning the partially completed run together with a StageFailure.
func (o *Orchestrator) Run(ctx context.Context, company string, docs document.Set) (*AnalysisRun, error) {
	run := NewRun(company)
	start := time.Now()
	zap.L().Info("starting analysis run",
		zap.String("run_id", run.ID),
		zap.String("company", company),
		zap.Int("documents", len(docs.Financial)))

	if err := o.prepare(ctx, run, docs); err != nil {
		run.FailureReason = err.Error()
		return run, err
	}
	run.Stage = StageExtraction

	if err := o.organizeData(ctx, run); err != nil {
		run.FailureReason = err.Error()
		return run, err
	}

	for _, stage := range AnalysisStages {
		if err := ctx.Err(); err != nil {
			run.FailureReason = err.Error()
			return run, err
		}
		if err := o.runStage(ctx, run, stage); err != nil {
			run.FailureReason = err.Error()
			return run, err
		}
		run.Stage = stage
	}

	if out, ok := run.Context.Get(StageRecommendation); ok {
		run.Verdict = parseVerdict(out)
	}

	if o.builder != nil {
		report, err := o.builder.Build(run)
		if err != nil {
			run.FailureReason = err.Error()
			return run, fmt.Errorf("report synthesis failed: %w", err)
		}
		run.Report = report
	}
	run.Stage = StageReportReady

	if o.repo != nil {
		if err := o.repo.SaveRun(ctx, run); err != nil {
			zap.L().Warn("failed to persist run", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	zap.L().Info("analysis run complete",
		zap.String("run_id", run.ID),
		zap.String("rating", run.Verdict.Rating),
		zap.Bool("extraction_degraded", run.ExtractionDegraded()),
		zap.Duration("elapsed", time.Since(start)))
	return run, nil
}

// prepare runs document extraction and valuation parameter ingestion
// concurrently. Both finish before any analysis stage starts.
func (o *Orchestrator) prepare(ctx context.Context, run *AnalysisRun, docs document.Set) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := o.extractor.ExtractAll(gctx, docs.Financial)
		if err != nil {
			return fmt.Errorf("document extraction failed: %w", err)
		}
		run.Records = records
		return nil
	})

	g.Go(func() error {
		if docs.Valuation == nil {
			return nil
		}
		text, err := valuationText(*docs.Valuation)
		if err == nil {
			err = o.index.Ingest(gctx, text, docs.Valuation.Name)
		}
		if err != nil {
			// Degraded retrieval, not fatal. The valuation stage falls back
			// to standard methodologies.
			zap.L().Warn("valuation parameter ingestion degraded",
				zap.String("document", docs.Valuation.Name), zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	run.Knowledge = o.index.Stats()
	if run.ExtractionDegraded() {
		zap.L().Warn("extraction degraded, proceeding with partial content",
			zap.String("run_id", run.ID))
	}
	return nil
}

// organizeData runs the consolidation pass over the raw extraction output
// and seeds the stage context with it.
func (o *Orchestrator) organizeData(ctx context.Context, run *AnalysisRun) error {
	pctx := prompt.NewContext().
		Set("CompanyName", run.Company).
		Set("Documents", o.formatRecords(run))

	out, err := o.generate(ctx, StageExtraction, prompt.IDs.DataOrganization, pctx)
	if err != nil {
		return err
	}
	run.Context.Append(StageExtraction, "Financial Data Extraction", out)
	return nil
}

// runStage executes one analysis stage and appends its output to the run
// context.
func (o *Orchestrator) runStage(ctx context.Context, run *AnalysisRun, stage Stage) error {
	pctx := prompt.NewContext().
		Set("CompanyName", run.Company).
		Set("Context", run.Context.Combined()).
		Set("Documents", o.formatRecords(run))

	var promptID, title string
	switch stage {
	case StageBusiness:
		promptID, title = prompt.IDs.BusinessAnalysis, "Business Model Analysis"
	case StageGrowth:
		promptID, title = prompt.IDs.GrowthAnalysis, "Growth and KPI Analysis"
	case StageValuation:
		promptID, title = prompt.IDs.Valuation, "Valuation Analysis"
		pctx.Set("ValuationParams", o.retrieveParameters(ctx))
	case StageRecommendation:
		promptID, title = prompt.IDs.Recommendation, "Investment Recommendation"
	default:
		return &StageFailure{Stage: stage, Err: fmt.Errorf("unknown stage")}
	}

	out, err := o.generate(ctx, stage, promptID, pctx)
	if err != nil {
		return err
	}
	run.Context.Append(stage, title, out)
	zap.L().Info("stage complete", zap.String("run_id", run.ID), zap.String("stage", string(stage)))
	return nil
}

// generate renders the prompt and calls the completion model under the
// shared retry policy. Retry exhaustion is a StageFailure.
func (o *Orchestrator) generate(ctx context.Context, stage Stage, promptID string, pctx *prompt.ExecutionContext) (string, error) {
	system, user, err := prompt.Render(promptID, pctx)
	if err != nil {
		return "", &StageFailure{Stage: stage, Err: err}
	}

	out, err := resilience.DoVal(ctx, o.retry, string(stage), func(ctx context.Context) (string, error) {
		if o.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
		}
		return o.completion.GenerateResponse(ctx, user, system, nil)
	})
	if err != nil {
		return "", &StageFailure{Stage: stage, Err: err}
	}
	return utils.CleanMarkdown(out), nil
}

// retrieveParameters queries the index for methodology guidance. An empty or
// degraded index yields the standard-methodology fallback.
func (o *Orchestrator) retrieveParameters(ctx context.Context) string {
	if o.index.Len() == 0 {
		return noParametersNote
	}
	chunks := o.index.Query(ctx, parameterQuery, o.topK)
	if len(chunks) == 0 {
		return noParametersNote
	}
	return knowledge.FormatResults(chunks)
}

func (o *Orchestrator) formatRecords(run *AnalysisRun) string {
	named := make([]prompt.NamedContent, 0, len(run.Records))
	for _, rec := range run.Records {
		named = append(named, prompt.NamedContent{Name: rec.Name, Content: rec.Content()})
	}
	return prompt.FormatDocuments(named)
}

// valuationText reads the valuation document locally; it never goes through
// the vision model.
func valuationText(doc document.Document) (string, error) {
	if doc.Kind == document.KindHTML {
		return document.HTMLText(doc.Data)
	}
	return extract.PDFText(doc.Data)
}
