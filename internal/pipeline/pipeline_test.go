package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nao1215/sitescore/internal/audit"
	"github.com/nao1215/sitescore/internal/model"
)

// mockAuditor returns canned results keyed by URL.
type mockAuditor struct {
	scores map[string]float64
	errs   map[string]error
	calls  []string
	hook   func(url string)
}

// Audit implements audit.Auditor.
func (m *mockAuditor) Audit(_ context.Context, url string) (*model.AuditReport, error) {
	m.calls = append(m.calls, url)
	if m.hook != nil {
		m.hook(url)
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	report := &model.AuditReport{RequestedURL: url}
	if score, ok := m.scores[url]; ok {
		report.Categories = append(report.Categories, model.Category{ID: model.PerformanceCategory, Score: score})
	}
	return report, nil
}

func pages(urls ...string) []*model.Page {
	out := make([]*model.Page, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.NewPage(u, "https://"+u))
	}
	return out
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New(&mockAuditor{})
		if p.category != model.PerformanceCategory {
			t.Errorf("expected default category %q, got %q", model.PerformanceCategory, p.category)
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithCategory option", func(t *testing.T) {
		t.Parallel()

		p := New(&mockAuditor{}, WithCategory("accessibility"))
		if p.category != "accessibility" {
			t.Errorf("expected category 'accessibility', got %q", p.category)
		}
	})
}

// TestPipelineRunAll tests the audit loop.
func TestPipelineRunAll(t *testing.T) {
	t.Parallel()

	t.Run("failed audit is skipped and reported", func(t *testing.T) {
		t.Parallel()

		auditor := &mockAuditor{
			scores: map[string]float64{"https://a.com": 0.9, "https://a.com/c": 0.5},
			errs:   map[string]error{"https://a.com/b": &audit.Error{URL: "https://a.com/b", ExitCode: 1}},
		}

		var events []Progress
		p := New(auditor, WithProgress(func(ev Progress) {
			events = append(events, ev)
		}))

		report := model.NewAggregateReport("https://a.com")
		p.RunAll(context.Background(), report, pages("a.com", "a.com/b", "a.com/c"))

		if report.Completed != 2 {
			t.Errorf("expected 2 completed, got %d", report.Completed)
		}
		if report.Failed != 1 {
			t.Errorf("expected 1 failed, got %d", report.Failed)
		}
		if math.Abs(report.Average-0.7) > 1e-9 {
			t.Errorf("expected average 0.7, got %v", report.Average)
		}
		if report.Total != 3 {
			t.Errorf("expected total 3, got %d", report.Total)
		}
		if len(auditor.calls) != 3 {
			t.Errorf("expected 3 audits, got %d", len(auditor.calls))
		}

		failed := report.Pages[1]
		if !failed.Failed() || failed.Score != model.NoScore {
			t.Errorf("expected second page to be failed with sentinel score, got %+v", failed)
		}

		if len(events) != 6 {
			t.Fatalf("expected 6 progress events, got %d", len(events))
		}
		warning := events[3]
		if !warning.Done || warning.Index != 2 || !errors.Is(warning.Err, audit.ErrAuditFailed) {
			t.Errorf("expected failure warning for page 2, got %+v", warning)
		}
		if events[0].Done || events[0].Index != 1 || events[0].Total != 3 {
			t.Errorf("unexpected first event %+v", events[0])
		}
	})

	t.Run("missing category is excluded from average", func(t *testing.T) {
		t.Parallel()

		auditor := &mockAuditor{scores: map[string]float64{"https://a.com": 0.4}}
		report := model.NewAggregateReport("https://a.com")
		New(auditor).RunAll(context.Background(), report, pages("a.com", "a.com/no-score"))

		if report.Completed != 1 || report.Unscored != 1 {
			t.Errorf("expected 1 completed and 1 unscored, got %d and %d", report.Completed, report.Unscored)
		}
		if report.Average != 0.4 {
			t.Errorf("expected average 0.4, got %v", report.Average)
		}
		if !report.Pages[1].AuditCompleted {
			t.Error("expected unscored page to be marked completed")
		}
	})

	t.Run("zero pages has undefined average", func(t *testing.T) {
		t.Parallel()

		report := model.NewAggregateReport("https://a.com")
		New(&mockAuditor{}).RunAll(context.Background(), report, nil)

		if report.Scored() {
			t.Error("expected report to be unscored")
		}
		if !math.IsNaN(report.Average) {
			t.Errorf("expected NaN, got %v", report.Average)
		}
		if report.AverageString() != model.NoPagesScoredMessage {
			t.Errorf("expected %q, got %q", model.NoPagesScoredMessage, report.AverageString())
		}
	})

	t.Run("all audits fail", func(t *testing.T) {
		t.Parallel()

		auditor := &mockAuditor{errs: map[string]error{
			"https://a.com":   errors.New("chrome not found"),
			"https://a.com/b": errors.New("chrome not found"),
		}}
		report := model.NewAggregateReport("https://a.com")
		New(auditor).RunAll(context.Background(), report, pages("a.com", "a.com/b"))

		if report.Failed != 2 || report.Scored() {
			t.Errorf("expected 2 failures and no score, got failed=%d average=%v", report.Failed, report.Average)
		}
	})

	t.Run("audits in discovery order", func(t *testing.T) {
		t.Parallel()

		auditor := &mockAuditor{}
		New(auditor).RunAll(context.Background(), model.NewAggregateReport("https://z.com"), pages("z.com", "a.com", "m.com"))

		want := []string{"https://z.com", "https://a.com", "https://m.com"}
		for i, u := range want {
			if auditor.calls[i] != u {
				t.Errorf("call %d: expected %q, got %q", i, u, auditor.calls[i])
			}
		}
	})

	t.Run("cancellation stops between pages", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		auditor := &mockAuditor{scores: map[string]float64{"https://a.com": 1, "https://a.com/b": 0}}
		auditor.hook = func(url string) {
			if url == "https://a.com" {
				cancel()
			}
		}

		report := model.NewAggregateReport("https://a.com")
		New(auditor).RunAll(ctx, report, pages("a.com", "a.com/b", "a.com/c"))

		if !report.Interrupted {
			t.Error("expected report to be interrupted")
		}
		if len(auditor.calls) != 1 {
			t.Errorf("expected 1 audit, got %d", len(auditor.calls))
		}
		if report.Completed != 1 || report.Average != 1 {
			t.Errorf("expected partial aggregate of the first page, got completed=%d average=%v", report.Completed, report.Average)
		}
		if report.Pages[1].AuditCompleted || report.Pages[1].Failed() {
			t.Error("expected skipped page to stay unaudited")
		}
	})

	t.Run("audit cut short by cancellation is not a failure", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		auditor := audit.AuditorFunc(func(ctx context.Context, _ string) (*model.AuditReport, error) {
			cancel()
			return nil, ctx.Err()
		})

		report := model.NewAggregateReport("https://a.com")
		New(auditor).RunAll(ctx, report, pages("a.com", "a.com/b"))

		if !report.Interrupted {
			t.Error("expected report to be interrupted")
		}
		if report.Failed != 0 {
			t.Errorf("expected no failures, got %d", report.Failed)
		}
		if report.Pages[0].Failed() {
			t.Error("expected interrupted page not to be marked failed")
		}
	})
}

// TestPipelineRunAllKeepsRunIdentity tests that the caller's site and start
// time survive the audit pass.
func TestPipelineRunAllKeepsRunIdentity(t *testing.T) {
	t.Parallel()

	report := model.NewAggregateReport("https://a.com")
	startedAt := report.StartedAt

	New(&mockAuditor{scores: map[string]float64{"https://a.com": 0.5}}).
		RunAll(context.Background(), report, pages("a.com"))

	if report.Site != "https://a.com" {
		t.Errorf("expected site to be kept, got %q", report.Site)
	}
	if !report.StartedAt.Equal(startedAt) {
		t.Errorf("expected start time %v to be kept, got %v", startedAt, report.StartedAt)
	}
	if report.FinishedAt.Before(startedAt) {
		t.Errorf("expected finish time after start, got %v", report.FinishedAt)
	}
	if report.Total != 1 || report.Completed != 1 {
		t.Errorf("unexpected counts: total=%d completed=%d", report.Total, report.Completed)
	}
}
