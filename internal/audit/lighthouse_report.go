package audit

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/sitescore/internal/model"
)

// lighthouseReport is the subset of the Lighthouse JSON output that is read.
//
//nolint:tagliatelle // field names follow the Lighthouse report format
type lighthouseReport struct {
	LighthouseVersion string                        `json:"lighthouseVersion"`
	RequestedURL      string                        `json:"requestedUrl"`
	FinalURL          string                        `json:"finalUrl"`
	FinalDisplayedURL string                        `json:"finalDisplayedUrl"`
	FetchTime         string                        `json:"fetchTime"`
	Categories        map[string]lighthouseCategory `json:"categories"`
	RunWarnings       []string                      `json:"runWarnings"`
	RuntimeError      *lighthouseRuntimeError       `json:"runtimeError"`

	// Lighthouse 2.x fields.
	URL              string           `json:"url"`
	GeneratedTime    string           `json:"generatedTime"`
	ReportCategories []legacyCategory `json:"reportCategories"`
}

type lighthouseCategory struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Score *float64 `json:"score"`
}

type legacyCategory struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

type lighthouseRuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseReport decodes a Lighthouse JSON report.
func ParseReport(data []byte) (*model.AuditReport, error) {
	var raw lighthouseReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	if raw.RuntimeError != nil && raw.RuntimeError.Code != "" && raw.RuntimeError.Code != "NO_ERROR" {
		return nil, fmt.Errorf("%w: %s: %s", ErrAuditFailed, raw.RuntimeError.Code, raw.RuntimeError.Message)
	}

	report := &model.AuditReport{
		RequestedURL:   firstNonEmpty(raw.RequestedURL, raw.URL),
		FinalURL:       firstNonEmpty(raw.FinalDisplayedURL, raw.FinalURL),
		AuditorVersion: raw.LighthouseVersion,
		FetchTime:      parseTime(firstNonEmpty(raw.FetchTime, raw.GeneratedTime)),
		Categories:     make([]model.Category, 0, len(raw.Categories)+len(raw.ReportCategories)),
		Warnings:       raw.RunWarnings,
	}

	for key, c := range raw.Categories {
		if c.Score == nil {
			continue
		}
		report.Categories = append(report.Categories, model.Category{
			ID:    firstNonEmpty(c.ID, key),
			Title: c.Title,
			Score: *c.Score,
		})
	}
	slices.SortFunc(report.Categories, func(a, b model.Category) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, c := range raw.ReportCategories {
		if c.Score == nil {
			continue
		}
		report.Categories = append(report.Categories, model.Category{
			ID:    c.ID,
			Title: c.Name,
			Score: *c.Score / 100,
		})
	}

	return report, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
