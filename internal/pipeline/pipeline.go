// Package pipeline runs the scan flow: OCR on a label image, then additive
// search on the recognized text, under one deadline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/additivelens/additivelens/internal/model"
	"github.com/additivelens/additivelens/internal/ocr"
	"github.com/additivelens/additivelens/internal/worker"
)

// ErrOCRDisabled is recorded when a scan is requested without a recognizer
var ErrOCRDisabled = errors.New("OCR is not configured")

// DefaultTimeout bounds OCR plus search for one image
const DefaultTimeout = 8 * time.Second

// Options tune a Pipeline. Zero values select the defaults.
type Options struct {
	Timeout       time.Duration
	MaxImageBytes int64
	Attempts      int             // OCR tries for transient errors
	Limiter       *worker.Limiter // Keyed by provider name, nil disables
	Logger        *slog.Logger
}

// Pipeline orchestrates the complete scan process
type Pipeline struct {
	recognizer    ocr.Recognizer
	searcher      worker.Searcher
	limiter       *worker.Limiter
	timeout       time.Duration
	maxImageBytes int64
	attempts      int
	logger        *slog.Logger
}

// New creates a pipeline. recognizer may be nil, in which case image scans
// report ErrOCRDisabled and text scans still work.
func New(recognizer ocr.Recognizer, searcher worker.Searcher, opts Options) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Pipeline{
		recognizer:    recognizer,
		searcher:      searcher,
		limiter:       opts.Limiter,
		timeout:       opts.Timeout,
		maxImageBytes: opts.MaxImageBytes,
		attempts:      opts.Attempts,
		logger:        opts.Logger.With("component", "pipeline"),
	}
}

// Provider returns the recognizer name, or "" when OCR is disabled
func (p *Pipeline) Provider() string {
	if p.recognizer == nil {
		return ""
	}
	return p.recognizer.Name()
}

// ScanImage recognizes the text on a label image and searches it. It never
// fails: OCR errors and timeouts leave Results empty and are recorded in
// the report's Error.
func (p *Pipeline) ScanImage(ctx context.Context, data []byte, mimeType string) *model.ScanReport {
	report := newReport()
	report.OCR.Bytes = len(data)
	logger := p.logger.With("scan_id", report.ID)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.recognizer == nil {
		report.Error = ErrOCRDisabled.Error()
		return report
	}
	report.OCR.Provider = p.recognizer.Name()

	img, err := ocr.Prepare(ocr.Image{Data: data, MIMEType: mimeType}, p.maxImageBytes)
	if err != nil {
		report.Error = fmt.Sprintf("image: %v", err)
		return report
	}

	res, err := p.recognize(ctx, img)
	if err != nil {
		logger.Warn("OCR failed", "provider", report.OCR.Provider, "error", err)
		report.Error = fmt.Sprintf("ocr: %v", err)
		return report
	}

	report.OCR.Model = res.Model
	report.OCR.Duration = res.Duration
	report.Text = res.Text

	p.search(ctx, report)

	logger.Debug("scan complete",
		"provider", report.OCR.Provider,
		"text_len", len(report.Text),
		"results", len(report.Results),
		"elapsed", time.Since(report.ScannedAt))

	return report
}

// ScanText searches text that was typed or recognized elsewhere
func (p *Pipeline) ScanText(ctx context.Context, text string) *model.ScanReport {
	report := newReport()
	report.Text = text

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.search(ctx, report)
	return report
}

// search fills report.Results. A search cut short by the deadline counts as
// no match.
func (p *Pipeline) search(ctx context.Context, report *model.ScanReport) {
	results := p.searcher.Search(ctx, report.Text)
	if err := ctx.Err(); err != nil {
		report.Error = fmt.Sprintf("search: %v", err)
		results = nil
	}
	if results == nil {
		results = []model.MatchResult{}
	}
	report.Results = results
}

func newReport() *model.ScanReport {
	return &model.ScanReport{
		ID:        uuid.NewString(),
		ScannedAt: time.Now().UTC(),
		Results:   []model.MatchResult{},
	}
}
