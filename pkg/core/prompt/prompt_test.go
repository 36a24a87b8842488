package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinsRegistered(t *testing.T) {
	r := Get()

	for _, id := range []string{
		IDs.ExtractionPage,
		IDs.ExtractionEnhance,
		IDs.DataOrganization,
		IDs.BusinessAnalysis,
		IDs.GrowthAnalysis,
		IDs.Valuation,
		IDs.Recommendation,
	} {
		pt, err := r.GetPrompt(id)
		if err != nil {
			t.Fatalf("builtin %s missing: %v", id, err)
		}
		if pt.SystemPrompt == "" {
			t.Errorf("builtin %s has empty system prompt", id)
		}
	}

	if got := len(r.ListByCategory("analysis")); got != 5 {
		t.Errorf("analysis category has %d templates, want 5", got)
	}
}

func TestRenderValuationPrompt(t *testing.T) {
	ctx := NewContext().
		Set("CompanyName", "Acme Corp").
		Set("Context", "prior analysis").
		Set("ValuationParams", "WACC 9%, terminal growth 2%").
		Set("Documents", "DOCUMENT: q1.pdf")

	system, user, err := Render(IDs.Valuation, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system == "" {
		t.Error("expected a system prompt")
	}
	for _, want := range []string{"Acme Corp", "WACC 9%", "prior analysis", "q1.pdf"} {
		if !strings.Contains(user, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestRenderUnknownID(t *testing.T) {
	if _, _, err := Render("analysis.nonexistent", NewContext()); err == nil {
		t.Fatal("expected error for unknown prompt ID")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "analysis")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	override := Template{
		ID:             IDs.BusinessAnalysis,
		SystemPrompt:   "custom system prompt",
		UserPromptTmpl: "analyze {{.CompanyName}}",
	}
	data, _ := json.Marshal(override)
	if err := os.WriteFile(filepath.Join(sub, "business.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadOverrides(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Get().GetSystemPrompt(IDs.BusinessAnalysis)
	if err != nil {
		t.Fatal(err)
	}
	if got != "custom system prompt" {
		t.Errorf("override not applied, got %q", got)
	}

	// Restore the builtin so other tests see the stock registry.
	for _, bt := range builtinTemplates {
		if bt.ID == IDs.BusinessAnalysis {
			if err := Get().Register(bt); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestLoadOverridesMissingDir(t *testing.T) {
	if err := LoadOverrides(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing dir should not error: %v", err)
	}
}

func TestFormatDocuments(t *testing.T) {
	out := FormatDocuments([]NamedContent{
		{Name: "annual_2024.pdf", Content: "Revenue: $10M"},
		{Name: "q1_2025.pdf", Content: "Revenue: $3M"},
	})
	if !strings.Contains(out, "DOCUMENT: annual_2024.pdf") || !strings.Contains(out, "Revenue: $3M") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
