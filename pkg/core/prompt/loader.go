package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// LoadOverrides loads prompt templates from JSON files in dir, replacing any
// builtin with the same ID. Missing dir is not an error; prompts stay builtin.
func LoadOverrides(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	registry := Get()
	loaded := 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if t.ID == "" {
			t.ID = idFromPath(path, dir)
		}
		if t.Category == "" {
			t.Category = categoryFromPath(path, dir)
		}

		if err := registry.Register(&t); err != nil {
			return fmt.Errorf("failed to register %s: %w", t.ID, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return err
	}

	if loaded > 0 {
		zap.L().Info("loaded prompt overrides", zap.Int("count", loaded), zap.String("dir", dir))
	}
	return nil
}

// idFromPath derives an ID like "analysis.valuation" from
// "<dir>/analysis/valuation.json".
func idFromPath(path, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, ".json")
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

func categoryFromPath(path, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context.
func RenderUserPrompt(t *Template, ctx *ExecutionContext) (string, error) {
	if t.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(t.ID).Parse(t.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", t.ID, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.ID, err)
	}

	return buf.String(), nil
}

// Render looks up a template by ID and renders it in one step. Returns the
// system prompt and the rendered user prompt.
func Render(id string, ctx *ExecutionContext) (system string, user string, err error) {
	t, err := Get().GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	user, err = RenderUserPrompt(t, ctx)
	if err != nil {
		return "", "", err
	}
	return t.SystemPrompt, user, nil
}

// FormatDocuments renders named document contents into the block the analysis
// templates expect.
func FormatDocuments(docs []NamedContent) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", 70))
		b.WriteString("\nDOCUMENT: ")
		b.WriteString(d.Name)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", 70))
		b.WriteString("\n")
		b.WriteString(d.Content)
	}
	return b.String()
}

// NamedContent pairs a document name with its extracted content.
type NamedContent struct {
	Name    string
	Content string
}
