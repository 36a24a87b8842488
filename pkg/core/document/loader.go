package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loader reads the financial-documents directory and the optional
// valuation-parameters document.
type Loader struct {
	financialsDir string
	valuationPath string
}

// NewLoader creates a loader for the given input locations. valuationPath may
// be empty; its absence degrades the valuation stage to unguided mode.
func NewLoader(financialsDir, valuationPath string) *Loader {
	return &Loader{financialsDir: financialsDir, valuationPath: valuationPath}
}

// Load enumerates the financial documents (sorted by file name for a stable
// order) and reads all raw bytes. Returns MissingInputError when no financial
// documents exist.
func (l *Loader) Load() (*Set, error) {
	entries, err := os.ReadDir(l.financialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read financials directory %s: %w", l.financialsDir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if kindOf(entry.Name()) == "" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, &MissingInputError{Dir: l.financialsDir}
	}

	set := &Set{}
	for _, name := range names {
		doc, err := l.read(filepath.Join(l.financialsDir, name))
		if err != nil {
			return nil, err
		}
		set.Financial = append(set.Financial, doc)
	}

	if l.valuationPath != "" {
		if _, err := os.Stat(l.valuationPath); err != nil {
			zap.L().Warn("valuation parameters document not found, valuation stage will run unguided",
				zap.String("path", l.valuationPath))
		} else {
			doc, err := l.read(l.valuationPath)
			if err != nil {
				return nil, err
			}
			set.Valuation = &doc
		}
	}

	zap.L().Info("loaded document set",
		zap.Int("financial_documents", len(set.Financial)),
		zap.Bool("valuation_document", set.Valuation != nil))

	return set, nil
}

func (l *Loader) read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	return Document{
		ID:   uuid.NewString(),
		Name: filepath.Base(path),
		Path: path,
		Kind: kindOf(path),
		Data: data,
	}, nil
}

func kindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".html", ".htm":
		return KindHTML
	default:
		return ""
	}
}
