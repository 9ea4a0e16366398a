package model

import "time"

// PerformanceCategory is the identifier of the overall load performance
// category in an audit report. Matching is case-sensitive.
const PerformanceCategory = "performance"

// AuditReport is the structured result of auditing one page.
// It is independent of the auditor's wire format; adapters convert
// their native output into this shape.
type AuditReport struct {
	// RequestedURL is the address handed to the auditor.
	RequestedURL string `json:"requested_url"`

	// FinalURL is the address the auditor ended up on after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// AuditorVersion is the version string reported by the auditor.
	AuditorVersion string `json:"auditor_version,omitempty"`

	// FetchTime is when the auditor loaded the page.
	FetchTime time.Time `json:"fetch_time,omitempty"`

	// Categories holds one entry per scored category.
	Categories []Category `json:"categories"`

	// Warnings are non-fatal problems the auditor reported for the run.
	Warnings []string `json:"warnings,omitempty"`
}

// Category is one scored category of an audit report.
type Category struct {
	// ID is the category identifier, e.g. "performance".
	ID string `json:"id"`

	// Title is the human readable category name.
	Title string `json:"title,omitempty"`

	// Score is in [0, 1].
	Score float64 `json:"score"`
}

// CategoryScore returns the score of the category with the given id.
// The second return value is false if the report has no such category.
func (r *AuditReport) CategoryScore(id string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	for _, c := range r.Categories {
		if c.ID == id {
			return c.Score, true
		}
	}
	return 0, false
}
