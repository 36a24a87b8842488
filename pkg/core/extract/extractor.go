package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"finanalysis/pkg/core/config"
	"finanalysis/pkg/core/document"
	"finanalysis/pkg/core/llm"
	"finanalysis/pkg/core/prompt"
	"finanalysis/pkg/core/resilience"
)

// Extractor runs vision-model extraction over document page batches.
type Extractor struct {
	vision  llm.VisionProvider
	cfg     config.ExtractionConfig
	retry   resilience.Policy
	limiter *rate.Limiter

	// pageTexts and pageSlice are swappable in tests.
	pageTexts func(data []byte) ([]string, error)
	pageSlice func(data []byte, first, last int) ([]byte, error)
}

// NewExtractor wires an extractor with the shared retry policy and a request
// rate limit covering all concurrent batches.
func NewExtractor(vision llm.VisionProvider, cfg config.ExtractionConfig, retry resilience.Policy) *Extractor {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Extractor{
		vision:    vision,
		cfg:       cfg,
		retry:     retry,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		pageTexts: pdfPageTexts,
		pageSlice: pdfPageSlice,
	}
}

// ExtractAll processes every document in order. Individual batch failures
// degrade the affected record; only context cancellation aborts the run.
func (e *Extractor) ExtractAll(ctx context.Context, docs []document.Document) ([]Record, error) {
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := e.Extract(ctx, doc)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Extract processes one document. PDF pages are partitioned into fixed-size
// batches processed concurrently; batch order in the record always matches
// page order.
func (e *Extractor) Extract(ctx context.Context, doc document.Document) (Record, error) {
	if doc.Kind == document.KindHTML {
		return e.extractHTML(ctx, doc)
	}

	texts, err := e.pageTexts(doc.Data)
	if err != nil {
		zap.L().Warn("pdf text layer unreadable, vision-only extraction",
			zap.String("document", doc.Name), zap.Error(err))
		texts = nil
	}

	pageCount := len(texts)
	if pageCount == 0 {
		// Unreadable locally; let the vision model see the whole document.
		pageCount = 1
	}

	batches := partition(pageCount, e.cfg.PagesPerBatch)
	// With an unreadable text layer the page count is unknown, so batches
	// cannot be cut out of the file; a single batch already is the file.
	sliceable := len(texts) > 0 && len(batches) > 1
	record := Record{
		DocumentID: doc.ID,
		Name:       doc.Name,
		PageCount:  pageCount,
		Batches:    make([]BatchResult, len(batches)),
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.MaxConcurrent > 0 {
		g.SetLimit(e.cfg.MaxConcurrent)
	}

	for i, span := range batches {
		i, span := i, span
		g.Go(func() error {
			b := BatchResult{Index: i, FirstPage: span[0], LastPage: span[1]}

			batchText := ""
			if len(texts) > 0 {
				batchText = strings.TrimSpace(strings.Join(texts[span[0]-1:span[1]], "\n"))
			}

			content, err := e.extractBatch(gctx, doc, span, sliceable, batchText)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("batch extraction failed, continuing degraded",
					zap.String("document", doc.Name),
					zap.String("pages", b.PageRange()),
					zap.Error(err))
				b.Failed = true
			} else {
				b.Content = content
			}

			record.Batches[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return record, fmt.Errorf("extraction aborted for %s: %w", doc.Name, err)
	}

	for _, b := range record.Batches {
		if b.Failed {
			record.Degraded = true
		}
	}
	return record, nil
}

// extractBatch picks the extraction path: pages with a usable text layer are
// structured from their text, image-only pages go to the vision model with
// just their batch's pages attached.
func (e *Extractor) extractBatch(ctx context.Context, doc document.Document, span [2]int, sliceable bool, batchText string) (string, error) {
	rng := pageRange(span[0], span[1])

	var system, user string
	var input llm.VisionInput
	var err error

	if doc.Kind == document.KindHTML || len(batchText) >= e.cfg.MinPageTextChars {
		pctx := prompt.NewContext().Set("PageRange", rng).Set("PageText", batchText)
		system, user, err = prompt.Render(prompt.IDs.ExtractionEnhance, pctx)
	} else {
		pctx := prompt.NewContext().Set("PageRange", rng)
		system, user, err = prompt.Render(prompt.IDs.ExtractionPage, pctx)

		docBytes := doc.Data
		if sliceable {
			sliced, serr := e.pageSlice(doc.Data, span[0], span[1])
			if serr != nil {
				zap.L().Warn("pdf page slice failed, attaching full document",
					zap.String("document", doc.Name),
					zap.String("pages", rng),
					zap.Error(serr))
			} else {
				docBytes = sliced
			}
		}
		input = llm.VisionInput{Document: docBytes, MIMEType: "application/pdf"}
	}
	if err != nil {
		return "", err
	}
	if system != "" {
		user = system + "\n\n" + user
	}

	return resilience.DoVal(ctx, e.retry, "extract pages "+rng, func(ctx context.Context) (string, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return e.vision.ExtractContent(ctx, user, input)
	})
}

// extractHTML treats the whole HTML document as one text batch.
func (e *Extractor) extractHTML(ctx context.Context, doc document.Document) (Record, error) {
	record := Record{
		DocumentID: doc.ID,
		Name:       doc.Name,
		PageCount:  1,
		Batches:    []BatchResult{{Index: 0, FirstPage: 1, LastPage: 1}},
	}

	text, err := document.HTMLText(doc.Data)
	if err != nil {
		zap.L().Warn("html extraction failed, continuing degraded",
			zap.String("document", doc.Name), zap.Error(err))
		record.Batches[0].Failed = true
		record.Degraded = true
		return record, nil
	}

	content, err := e.extractBatch(ctx, doc, [2]int{1, 1}, false, strings.TrimSpace(text))
	if err != nil {
		if ctx.Err() != nil {
			return record, fmt.Errorf("extraction aborted for %s: %w", doc.Name, ctx.Err())
		}
		zap.L().Warn("html enhancement failed, continuing degraded",
			zap.String("document", doc.Name), zap.Error(err))
		record.Batches[0].Failed = true
		record.Degraded = true
		return record, nil
	}

	record.Batches[0].Content = content
	return record, nil
}

// partition splits pageCount 1-based pages into [first,last] spans of at
// most batchSize pages.
func partition(pageCount, batchSize int) [][2]int {
	if batchSize <= 0 {
		batchSize = 1
	}
	var spans [][2]int
	for start := 1; start <= pageCount; start += batchSize {
		end := start + batchSize - 1
		if end > pageCount {
			end = pageCount
		}
		spans = append(spans, [2]int{start, end})
	}
	return spans
}
