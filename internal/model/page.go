package model

// NoScore is the sentinel score of a page that has not been scored.
// Valid performance scores are in [0, 1], so -1 never collides with one.
const NoScore = -1.0

// Page represents one discovered, addressable page of the crawl target.
//
// Key and Address are fixed when the registry creates the page. The audit
// fields (AuditCompleted, Report, Score, AuditError) are written once by the
// audit pipeline step that handles this page and are read-only afterwards.
type Page struct {
	// Key is the normalized form of Address used for deduplication.
	// It is never dereferenced as a live address.
	Key string `json:"key"`

	// Address is the URL that is fetched and audited.
	Address string `json:"address"`

	// AuditCompleted is true once the auditor returned a report for this page.
	AuditCompleted bool `json:"audit_completed"`

	// Report is the auditor's structured output.
	// Nil until the audit completes.
	Report *AuditReport `json:"-"`

	// Score is the performance category score in [0, 1],
	// or NoScore when the page has not been scored.
	Score float64 `json:"score"`

	// AuditError describes why the audit of this page failed.
	// Empty when the audit succeeded or has not run.
	AuditError string `json:"audit_error,omitempty"`
}

// NewPage creates an unaudited page.
func NewPage(key, address string) *Page {
	return &Page{
		Key:     key,
		Address: address,
		Score:   NoScore,
	}
}

// Scored reports whether the page holds a real score.
func (p *Page) Scored() bool {
	return p.AuditCompleted && p.Score != NoScore
}

// Failed reports whether the audit of the page failed.
func (p *Page) Failed() bool {
	return p.AuditError != ""
}

// CompleteAudit stores the auditor's report and extracts the score of
// the given category. If the category is absent the score stays NoScore.
func (p *Page) CompleteAudit(report *AuditReport, categoryID string) {
	p.AuditCompleted = true
	p.Report = report
	p.AuditError = ""

	if score, ok := report.CategoryScore(categoryID); ok {
		p.Score = score
	}
}

// FailAudit records an audit failure. The score stays NoScore.
func (p *Page) FailAudit(err error) {
	p.AuditError = err.Error()
}
