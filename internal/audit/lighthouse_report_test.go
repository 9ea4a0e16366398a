package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/nao1215/sitescore/internal/model"
)

const modernReport = `{
  "lighthouseVersion": "12.2.1",
  "requestedUrl": "https://example.com/",
  "finalUrl": "https://example.com/",
  "finalDisplayedUrl": "https://www.example.com/",
  "fetchTime": "2026-10-01T12:30:00.000Z",
  "runWarnings": ["The page loaded too slowly to finish within the time limit."],
  "categories": {
    "seo": {"id": "seo", "title": "SEO", "score": 0.9},
    "performance": {"id": "performance", "title": "Performance", "score": 0.87},
    "pwa": {"id": "pwa", "title": "PWA", "score": null}
  }
}`

const legacyReport = `{
  "lighthouseVersion": "2.9.4",
  "url": "https://example.com/",
  "generatedTime": "2018-05-01T10:00:00.000Z",
  "reportCategories": [
    {"id": "performance", "name": "Performance", "score": 64},
    {"id": "accessibility", "name": "Accessibility", "score": 100}
  ]
}`

// TestParseReport tests decoding of Lighthouse reports.
func TestParseReport(t *testing.T) {
	t.Parallel()

	t.Run("current format", func(t *testing.T) {
		t.Parallel()

		report, err := ParseReport([]byte(modernReport))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.AuditorVersion != "12.2.1" {
			t.Errorf("expected version 12.2.1, got %q", report.AuditorVersion)
		}
		if report.RequestedURL != "https://example.com/" {
			t.Errorf("unexpected requested URL %q", report.RequestedURL)
		}
		if report.FinalURL != "https://www.example.com/" {
			t.Errorf("expected displayed final URL, got %q", report.FinalURL)
		}
		if !report.FetchTime.Equal(time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC)) {
			t.Errorf("unexpected fetch time %v", report.FetchTime)
		}
		if len(report.Warnings) != 1 {
			t.Errorf("expected 1 warning, got %d", len(report.Warnings))
		}

		// null scores are dropped and the rest sorted by id
		if len(report.Categories) != 2 {
			t.Fatalf("expected 2 categories, got %d", len(report.Categories))
		}
		if report.Categories[0].ID != "performance" || report.Categories[1].ID != "seo" {
			t.Errorf("unexpected category order %+v", report.Categories)
		}

		score, ok := report.CategoryScore(model.PerformanceCategory)
		if !ok || score != 0.87 {
			t.Errorf("expected performance 0.87, got %v (found=%v)", score, ok)
		}
	})

	t.Run("legacy format", func(t *testing.T) {
		t.Parallel()

		report, err := ParseReport([]byte(legacyReport))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.RequestedURL != "https://example.com/" {
			t.Errorf("unexpected requested URL %q", report.RequestedURL)
		}
		score, ok := report.CategoryScore(model.PerformanceCategory)
		if !ok || score != 0.64 {
			t.Errorf("expected performance 0.64, got %v (found=%v)", score, ok)
		}
		if report.FetchTime.IsZero() {
			t.Error("expected generated time to be used as fetch time")
		}
	})

	t.Run("no categories", func(t *testing.T) {
		t.Parallel()

		report, err := ParseReport([]byte(`{"lighthouseVersion": "12.0.0"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := report.CategoryScore(model.PerformanceCategory); ok {
			t.Error("expected performance category to be absent")
		}
	})

	t.Run("runtime error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseReport([]byte(`{"runtimeError": {"code": "NO_FCP", "message": "The page did not paint any content."}}`))
		if !errors.Is(err, ErrAuditFailed) {
			t.Errorf("expected ErrAuditFailed, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		_, err := ParseReport([]byte(`{"categories": [`))
		if !errors.Is(err, ErrInvalidReport) {
			t.Errorf("expected ErrInvalidReport, got %v", err)
		}
	})
}
