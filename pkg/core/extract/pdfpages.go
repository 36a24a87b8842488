package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFText returns the whole embedded text layer of a PDF as one string.
// Used for documents that are read locally rather than through the vision
// model, like the valuation parameters document.
func PDFText(data []byte) (string, error) {
	pages, err := pdfPageTexts(data)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}

// pdfPageSlice writes pages first..last into a standalone PDF so a vision
// request carries only its own batch, not the whole source file.
func pdfPageSlice(data []byte, first, last int) ([]byte, error) {
	var buf bytes.Buffer
	pages := []string{fmt.Sprintf("%d-%d", first, last)}
	if err := api.Trim(bytes.NewReader(data), &buf, pages, nil); err != nil {
		return nil, fmt.Errorf("failed to slice pages %d-%d: %w", first, last, err)
	}
	return buf.Bytes(), nil
}

// pdfPageTexts reads the embedded text layer of every page. Pages without a
// text layer (scans, charts) come back empty and are routed to the vision
// model instead.
func pdfPageTexts(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	n := reader.NumPage()
	texts := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Corrupt page content is not fatal; the vision path covers it.
			continue
		}
		texts[i-1] = text
	}
	return texts, nil
}
