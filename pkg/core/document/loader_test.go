package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEmptyDirReturnsMissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLoader(dir, "").Load()
	if err == nil {
		t.Fatal("expected MissingInputError for empty directory")
	}
	var mie *MissingInputError
	if !errors.As(err, &mie) {
		t.Fatalf("expected MissingInputError, got %T: %v", err, err)
	}
	if mie.Dir != dir {
		t.Errorf("error should carry the directory, got %s", mie.Dir)
	}
}

func TestLoadIgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "not a document")
	writeFile(t, dir, "data.csv", "a,b")

	_, err := NewLoader(dir, "").Load()
	var mie *MissingInputError
	if !errors.As(err, &mie) {
		t.Fatalf("unsupported files must not count as financial documents, got %v", err)
	}
}

func TestLoadOrdersDocumentsByName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q3.pdf", "%PDF-1.4 c")
	writeFile(t, dir, "annual.pdf", "%PDF-1.4 a")
	writeFile(t, dir, "q1.pdf", "%PDF-1.4 b")

	set, err := NewLoader(dir, "").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set.Financial) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(set.Financial))
	}
	want := []string{"annual.pdf", "q1.pdf", "q3.pdf"}
	for i, name := range want {
		if set.Financial[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, set.Financial[i].Name)
		}
	}
	for _, doc := range set.Financial {
		if doc.ID == "" {
			t.Error("document ID must be assigned")
		}
		if len(doc.Data) == 0 {
			t.Errorf("document %s has no data", doc.Name)
		}
	}
}

func TestLoadMissingValuationDocumentDegrades(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q1.pdf", "%PDF-1.4")

	set, err := NewLoader(dir, filepath.Join(dir, "absent.pdf")).Load()
	if err != nil {
		t.Fatalf("missing valuation document must not fail the load: %v", err)
	}
	if set.Valuation != nil {
		t.Error("expected nil valuation document")
	}
}

func TestLoadWithValuationDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q1.pdf", "%PDF-1.4")

	valDir := t.TempDir()
	valPath := writeFile(t, valDir, "valuation_parameters.pdf", "%PDF-1.4 params")

	set, err := NewLoader(dir, valPath).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Valuation == nil {
		t.Fatal("expected valuation document to be loaded")
	}
	if set.Valuation.Name != "valuation_parameters.pdf" {
		t.Errorf("unexpected valuation doc name %s", set.Valuation.Name)
	}
}

func TestHTMLText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
	<h1>Annual Report</h1>
	<p>Revenue grew to <b>$120M</b> in FY2024.</p>
	<script>alert("x")</script>
	<table><tr><td>Net income</td><td>$14M</td></tr></table>
	</body></html>`

	text, err := HTMLText([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Annual Report", "$120M", "Net income", "$14M"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "alert") {
		t.Error("script content must be stripped")
	}
	if strings.Contains(text, "color:red") {
		t.Error("style content must be stripped")
	}
}
