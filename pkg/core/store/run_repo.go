package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finanalysis/pkg/core/pipeline"
)

// RunRepo stores analysis runs keyed by run ID.
//
// Schema assumption (managed outside this code):
//
//	CREATE TABLE IF NOT EXISTS analysis_runs (
//	  run_id TEXT PRIMARY KEY,
//	  company TEXT NOT NULL,
//	  rating TEXT,
//	  report TEXT,
//	  stage_context JSONB,
//	  created_at TIMESTAMPTZ,
//	  saved_at TIMESTAMPTZ
//	);
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo creates a repository over an established pool.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// SaveRun upserts a run. A single JSONB blob holds the stage context; the
// columns queried most often (company, rating) are broken out.
func (r *RunRepo) SaveRun(ctx context.Context, run *pipeline.AnalysisRun) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	contextJSON, err := json.Marshal(run.Context.Entries())
	if err != nil {
		return fmt.Errorf("failed to marshal stage context: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (run_id, company, rating, report, stage_context, created_at, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id)
		DO UPDATE SET
			rating = EXCLUDED.rating,
			report = EXCLUDED.report,
			stage_context = EXCLUDED.stage_context,
			saved_at = EXCLUDED.saved_at;
	`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.Company, run.Verdict.Rating, run.Report, contextJSON, run.CreatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// LoadRun retrieves a stored run by ID.
func (r *RunRepo) LoadRun(ctx context.Context, runID string) (*pipeline.AnalysisRun, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT company, rating, report, stage_context, created_at FROM analysis_runs WHERE run_id = $1`

	var (
		company, rating, reportBody string
		contextJSON                 []byte
		createdAt                   time.Time
	)
	err := r.pool.QueryRow(ctx, query, runID).Scan(&company, &rating, &reportBody, &contextJSON, &createdAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no run found with id %s", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var entries []pipeline.ContextEntry
	if err := json.Unmarshal(contextJSON, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage context: %w", err)
	}

	run := &pipeline.AnalysisRun{
		ID:        runID,
		Company:   company,
		CreatedAt: createdAt,
		Report:    reportBody,
	}
	run.Verdict.Rating = rating
	for _, e := range entries {
		run.Context.Append(e.Stage, e.Title, e.Content)
	}
	return run, nil
}
