package report

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"finanalysis/pkg/core/pipeline"
)

// PersistenceError is the fatal error raised when a completed report cannot
// be written to the output location.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist report to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Writer persists report artifacts to the output directory.
type Writer struct {
	outputDir string
}

// NewWriter returns a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Write saves the run's report and returns the artifact path. The filename
// carries the sanitized company name and the run timestamp, so repeated runs
// never overwrite each other.
func (w *Writer) Write(run *pipeline.AnalysisRun) (string, error) {
	filename := fmt.Sprintf("investment_report_%s_%s.md",
		sanitizeName(run.Company), run.CreatedAt.Format(idLayout))
	path := filepath.Join(w.outputDir, filename)

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(run.Report), 0o644); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}

	zap.L().Info("report written", zap.String("path", path), zap.String("run_id", run.ID))
	return path, nil
}
