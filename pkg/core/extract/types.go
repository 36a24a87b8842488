// Package extract turns loaded financial documents into model-readable text.
// PDF pages are batched and sent through the vision model concurrently;
// results are reassembled in page order.
package extract

import (
	"fmt"
	"strings"
)

// BatchResult is the extraction outcome for one contiguous page range.
type BatchResult struct {
	Index     int
	FirstPage int
	LastPage  int
	Content   string
	Failed    bool
}

// PageRange renders the human-readable range used in prompts and gap markers.
func (b BatchResult) PageRange() string {
	return pageRange(b.FirstPage, b.LastPage)
}

func pageRange(first, last int) string {
	if first == last {
		return fmt.Sprintf("%d", first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

// Record is the full extraction result for one document. Batches are always
// in page order regardless of completion order.
type Record struct {
	DocumentID string
	Name       string
	PageCount  int
	Batches    []BatchResult
	Degraded   bool
}

// Content joins the batch contents, substituting a gap marker for every
// failed batch so downstream analysis knows pages are missing.
func (r Record) Content() string {
	parts := make([]string, 0, len(r.Batches))
	for _, b := range r.Batches {
		if b.Failed {
			parts = append(parts, fmt.Sprintf("[pages %s unavailable: extraction failed]", b.PageRange()))
			continue
		}
		parts = append(parts, b.Content)
	}
	return strings.Join(parts, "\n\n")
}
