// Package ingest runs the page ingestion pipeline: spool the scan, extract
// its text, push the image to the media store, and assemble the results back
// into page order.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/media/cdn"
	"github.com/openarklib/openark-server/internal/media/images"
	"github.com/openarklib/openark-server/internal/observability"
	"github.com/openarklib/openark-server/internal/ocr"
	"github.com/openarklib/openark-server/internal/uploads"
)

// PageFile is one uploaded scan, not yet spooled.
type PageFile struct {
	Name   string
	Reader io.Reader
}

// PageError records a page the pipeline had to drop. The batch continues
// without it; callers report these alongside the pages that made it.
type PageError struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Err   string `json:"error"`
}

// Assembler fans page files out over the OCR and media adapters, bounded by
// a configured concurrency, and reassembles results in submission order.
type Assembler struct {
	spool       *uploads.Spool
	extractor   ocr.TextExtractor
	media       cdn.Store
	folder      string
	concurrency int
	logger      *slog.Logger
}

// NewAssembler creates a page assembler.
func NewAssembler(spool *uploads.Spool, extractor ocr.TextExtractor, media cdn.Store, folder string, concurrency int, logger *slog.Logger) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Assembler{
		spool:       spool,
		extractor:   extractor,
		media:       media,
		folder:      folder,
		concurrency: concurrency,
		logger:      logger,
	}
}

// pageResult carries one page's outcome back to its submission slot.
type pageResult struct {
	page *domain.Page
	err  *PageError
}

// Assemble processes a batch of page files. Results come back in submission
// order regardless of completion order. A page whose text extraction fails
// is kept with the failure marker; a page whose image upload fails is
// dropped and reported. One page's failure never aborts the batch.
func (a *Assembler) Assemble(ctx context.Context, files []PageFile) ([]domain.Page, []PageError) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]pageResult, len(files))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		go func(idx int, f PageFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = a.processPage(ctx, idx, f)
		}(i, file)
	}
	wg.Wait()

	pages := make([]domain.Page, 0, len(files))
	var pageErrors []PageError
	for _, res := range results {
		if res.err != nil {
			pageErrors = append(pageErrors, *res.err)
			continue
		}
		pages = append(pages, *res.page)
	}
	return pages, pageErrors
}

// processPage runs one file through spool, OCR, and media upload.
func (a *Assembler) processPage(ctx context.Context, idx int, f PageFile) pageResult {
	fail := func(err error) pageResult {
		observability.PagesProcessed.WithLabelValues("dropped").Inc()
		if a.logger != nil {
			a.logger.Warn("Page dropped from batch",
				"index", idx, "name", f.Name, "error", err)
		}
		return pageResult{err: &PageError{Index: idx, Name: f.Name, Err: err.Error()}}
	}

	path, err := a.spool.Save(f.Reader, f.Name)
	if err != nil {
		return fail(err)
	}

	data, err := a.spool.Read(path)
	if err != nil {
		return fail(err)
	}

	info, err := images.Inspect(data)
	if err != nil {
		// Not a decodable image; nothing downstream could use it.
		_ = a.media.Delete(ctx, path)
		return fail(err)
	}

	text, err := a.extractor.ExtractText(ctx, data, info.MIMEType())
	if err != nil {
		// Text extraction failing is never fatal to the page: the image is
		// still worth keeping, so store the marker and move on.
		observability.OCRRequests.WithLabelValues("transport_error").Inc()
		text = ocr.FailureMarker
	} else if text == ocr.FailureMarker {
		observability.OCRRequests.WithLabelValues("failure").Inc()
	} else {
		observability.OCRRequests.WithLabelValues("ok").Inc()
	}

	url, err := a.media.Upload(ctx, path, a.folder)
	if err != nil {
		// Without a stored image there is no page. The spooled file stays
		// behind for the uploads watcher to report.
		observability.MediaUploads.WithLabelValues("error").Inc()
		return fail(err)
	}
	observability.MediaUploads.WithLabelValues("ok").Inc()

	outcome := "ok"
	if text == ocr.FailureMarker {
		outcome = "ocr_failed"
	}
	observability.PagesProcessed.WithLabelValues(outcome).Inc()

	return pageResult{page: &domain.Page{
		ImageURL: url,
		Text:     text,
		BlurHash: info.BlurHash,
	}}
}

// Preview holds the result of an interactive single-image extraction.
type Preview struct {
	Text    string `json:"text"`
	Warning string `json:"warning,omitempty"`
}

// ExtractPreview runs text extraction on a single image without uploading
// it anywhere. Transport failures propagate; a readable request that yields
// no text comes back with a warning so librarians can retake the photo
// before committing a batch.
func (a *Assembler) ExtractPreview(ctx context.Context, f PageFile) (*Preview, error) {
	path, err := a.spool.Save(f.Reader, f.Name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.media.Delete(ctx, path) }()

	data, err := a.spool.Read(path)
	if err != nil {
		return nil, err
	}

	info, err := images.Inspect(data)
	if err != nil {
		return nil, err
	}

	text, err := a.extractor.ExtractText(ctx, data, info.MIMEType())
	if err != nil {
		observability.OCRRequests.WithLabelValues("transport_error").Inc()
		return nil, err
	}
	observability.OCRRequests.WithLabelValues("ok").Inc()

	preview := &Preview{Text: text}
	if strings.TrimSpace(text) == "" || text == ocr.FailureMarker {
		preview.Warning = "no text detected"
	}
	return preview, nil
}
