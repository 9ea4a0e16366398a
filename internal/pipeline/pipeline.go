package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitescore/internal/audit"
	"github.com/nao1215/sitescore/internal/model"
)

// Progress is reported twice per page: once before the audit starts
// (Done is false) and once after it finishes (Done is true).
type Progress struct {
	// Index is the 1-based position of the page.
	Index int

	// Total is the number of pages in the run.
	Total int

	// Page is the page being audited.
	Page *model.Page

	// Done is true once the audit of Page has finished.
	Done bool

	// Err is the audit error, if any. Only set when Done is true.
	Err error
}

// ProgressFunc observes pipeline progress. It must not block for long.
type ProgressFunc func(Progress)

// Pipeline audits pages sequentially and aggregates their scores.
type Pipeline struct {
	// auditor produces a report for a single page.
	auditor audit.Auditor

	// category is the id of the scored category.
	category string

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// progress is notified before and after each audit.
	progress ProgressFunc
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProgress sets the progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithCategory sets the id of the category whose score is averaged.
// The default is model.PerformanceCategory.
func WithCategory(id string) Option {
	return func(p *Pipeline) {
		p.category = id
	}
}

// New creates a Pipeline that audits pages with auditor.
func New(auditor audit.Auditor, opts ...Option) *Pipeline {
	p := &Pipeline{
		auditor:  auditor,
		category: model.PerformanceCategory,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// RunAll audits every page in order and records the results in report,
// which the caller creates with the site and start time of the run.
// It never stops on an audit failure. If ctx is canceled the remaining
// pages are skipped and the report is marked Interrupted.
func (p *Pipeline) RunAll(ctx context.Context, report *model.AggregateReport, pages []*model.Page) {
	report.Pages = pages
	report.Total = len(pages)

	for i, page := range pages {
		select {
		case <-ctx.Done():
			p.logger.Warn("audit interrupted",
				"audited", i,
				"total", len(pages),
				"reason", ctx.Err(),
			)
			report.Interrupted = true
			report.Finish()
			return
		default:
		}

		p.notify(Progress{Index: i + 1, Total: len(pages), Page: page})

		err := p.auditPage(ctx, page)
		if err != nil && ctx.Err() != nil {
			// The audit was cut short; the page stays unaudited.
			p.logger.Warn("audit interrupted", "url", page.Address, "reason", ctx.Err())
			report.Interrupted = true
			report.Finish()
			return
		}
		report.Record(page)

		p.notify(Progress{Index: i + 1, Total: len(pages), Page: page, Done: true, Err: err})
	}

	report.Finish()
	p.logger.Debug("audit finished",
		"total", report.Total,
		"completed", report.Completed,
		"failed", report.Failed,
		"average", report.AverageString(),
	)
}

// auditPage audits one page and stores the result on it.
func (p *Pipeline) auditPage(ctx context.Context, page *model.Page) error {
	p.logger.Debug("auditing page", "url", page.Address)

	result, err := p.auditor.Audit(ctx, page.Address)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		page.FailAudit(err)
		p.logger.Warn("audit failed", "url", page.Address, "error", err)
		return err
	}

	page.CompleteAudit(result, p.category)
	if !page.Scored() {
		p.logger.Warn("audit report has no score", "url", page.Address, "category", p.category)
	}
	for _, w := range result.Warnings {
		p.logger.Debug("auditor warning", "url", page.Address, "warning", w)
	}
	return nil
}

func (p *Pipeline) notify(ev Progress) {
	if p.progress != nil {
		p.progress(ev)
	}
}
