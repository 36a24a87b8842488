package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/document"
	"finanalysis/pkg/core/extract"
	"finanalysis/pkg/core/knowledge"
	"finanalysis/pkg/core/llm"
	"finanalysis/pkg/core/pipeline"
	"finanalysis/pkg/core/prompt"
	"finanalysis/pkg/core/report"
	"finanalysis/pkg/core/resilience"
	"finanalysis/pkg/core/store"
)

func main() {
	company := flag.String("company-name", "", "name of the company to analyze (required)")
	configPath := flag.String("config", "", "path to a YAML config file")
	financialsDir := flag.String("financials", "", "directory of financial documents (overrides config)")
	valuationPath := flag.String("valuation", "", "path to the valuation parameters document (overrides config)")
	outputDir := flag.String("output", "", "directory for the report artifact (overrides config)")
	promptsDir := flag.String("prompts", "", "directory of prompt template overrides")
	flag.Parse()

	if *company == "" {
		fmt.Fprintln(os.Stderr, "error: -company-name is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		// No .env file is fine; environment variables may be set directly.
		_ = err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if *financialsDir != "" {
		cfg.FinancialsDir = *financialsDir
	}
	if *valuationPath != "" {
		cfg.ValuationPDFPath = *valuationPath
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if *promptsDir != "" {
		if err := prompt.LoadOverrides(*promptsDir); err != nil {
			logger.Fatal("failed to load prompt overrides", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *company); err != nil {
		var missing *document.MissingInputError
		var stageErr *pipeline.StageFailure
		var persistErr *report.PersistenceError
		switch {
		case errors.As(err, &missing):
			logger.Error("no input documents", zap.Error(err))
		case errors.As(err, &stageErr):
			logger.Error("analysis stage failed", zap.String("stage", string(stageErr.Stage)), zap.Error(err))
		case errors.As(err, &persistErr):
			logger.Error("report could not be written", zap.Error(err))
		default:
			logger.Error("analysis failed", zap.Error(err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, company string) error {
	logger := zap.L()
	logger.Info("starting financial analysis",
		zap.String("company", company),
		zap.String("financials_dir", cfg.FinancialsDir),
		zap.String("valuation_path", cfg.ValuationPDFPath),
		zap.String("output_dir", cfg.OutputDir))

	docs, err := document.NewLoader(cfg.FinancialsDir, cfg.ValuationPDFPath).Load()
	if err != nil {
		return err
	}

	manager, err := llm.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize model providers: %w", err)
	}
	manager.Preflight(ctx)

	retry := resilience.FromConfig(cfg.Retry)
	extractor := extract.NewExtractor(manager.Vision(), cfg.Extraction, retry)
	index := knowledge.NewIndex(manager.Embedder(), cfg.Knowledge, retry)

	orchestrator := pipeline.NewOrchestrator(extractor, index, manager.Completion(), report.NewSynthesizer(), cfg)

	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, continuing without persistence", zap.Error(err))
		} else {
			defer pool.Close()
			orchestrator.SetRepository(store.NewRunRepo(pool))
		}
	}

	analysisRun, err := orchestrator.Run(ctx, company, *docs)
	if err != nil {
		return err
	}

	path, err := report.NewWriter(cfg.OutputDir).Write(analysisRun)
	if err != nil {
		return err
	}

	logger.Info("analysis complete",
		zap.String("report", path),
		zap.String("rating", analysisRun.Verdict.Rating),
		zap.Bool("degraded", analysisRun.ExtractionDegraded() || analysisRun.Knowledge.Degraded))
	fmt.Printf("Report saved to: %s\n", path)
	return nil
}
