package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// NoPagesScoredMessage is shown instead of an average when no page was scored.
const NoPagesScoredMessage = "no pages scored"

// AggregateReport is the result of one crawl-and-audit run.
//
// Only pages with a real score contribute to Sum and Completed. Pages whose
// audit failed or whose report lacks the performance category are listed
// in Pages but excluded from the average.
type AggregateReport struct {
	// Site is the seed URL of the run.
	Site string `json:"site"`

	// Pages are all registered pages in discovery order.
	Pages []*Page `json:"pages"`

	// Total is the number of registered pages.
	Total int `json:"total"`

	// Completed is the number of pages that produced a real score.
	Completed int `json:"completed"`

	// Failed is the number of pages whose audit failed.
	Failed int `json:"failed"`

	// Unscored is the number of audited pages that lacked the
	// performance category.
	Unscored int `json:"unscored"`

	// Sum is the sum of all real scores.
	Sum float64 `json:"sum"`

	// Average is Sum / Completed, or NaN when Completed is zero.
	Average float64 `json:"-"`

	// Interrupted is true when the run stopped before every page was audited.
	Interrupted bool `json:"interrupted"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the audit phase ended.
	FinishedAt time.Time `json:"finished_at"`
}

// NewAggregateReport creates an empty report for the given site.
func NewAggregateReport(site string) *AggregateReport {
	return &AggregateReport{
		Site:      site,
		Pages:     make([]*Page, 0),
		Average:   math.NaN(),
		StartedAt: time.Now(),
	}
}

// Record adds an audited (or failed) page to the running totals.
func (r *AggregateReport) Record(page *Page) {
	switch {
	case page.Failed():
		r.Failed++
	case page.Scored():
		r.Sum += page.Score
		r.Completed++
	case page.AuditCompleted:
		r.Unscored++
	}
}

// Finish computes the average and stamps the finish time.
func (r *AggregateReport) Finish() {
	r.FinishedAt = time.Now()
	if r.Completed == 0 {
		r.Average = math.NaN()
		return
	}
	r.Average = r.Sum / float64(r.Completed)
}

// Scored reports whether the average is defined.
func (r *AggregateReport) Scored() bool {
	return r.Completed > 0 && !math.IsNaN(r.Average)
}

// AverageString formats the average with two decimals,
// or returns NoPagesScoredMessage when it is undefined.
func (r *AggregateReport) AverageString() string {
	if !r.Scored() {
		return NoPagesScoredMessage
	}
	return strconv.FormatFloat(r.Average, 'f', 2, 64)
}

// Duration returns how long the run took.
func (r *AggregateReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Lowest returns the scored page with the lowest score, or nil.
func (r *AggregateReport) Lowest() *Page {
	var lowest *Page
	for _, p := range r.Pages {
		if p.Scored() && (lowest == nil || p.Score < lowest.Score) {
			lowest = p
		}
	}
	return lowest
}

// Highest returns the scored page with the highest score, or nil.
func (r *AggregateReport) Highest() *Page {
	var highest *Page
	for _, p := range r.Pages {
		if p.Scored() && (highest == nil || p.Score > highest.Score) {
			highest = p
		}
	}
	return highest
}

// FailedPages returns the pages whose audit failed, in discovery order.
func (r *AggregateReport) FailedPages() []*Page {
	failed := make([]*Page, 0, r.Failed)
	for _, p := range r.Pages {
		if p.Failed() {
			failed = append(failed, p)
		}
	}
	return failed
}

// aggregateJSON is the wire form of AggregateReport.
// encoding/json cannot encode NaN, so the average is a nullable pointer.
type aggregateJSON struct {
	aggregateAlias
	Average *float64 `json:"average"`
	Scored  bool     `json:"scored"`
}

type aggregateAlias AggregateReport

// MarshalJSON encodes an undefined average as null.
func (r *AggregateReport) MarshalJSON() ([]byte, error) {
	out := aggregateJSON{aggregateAlias: aggregateAlias(*r), Scored: r.Scored()}
	if out.Scored {
		avg := r.Average
		out.Average = &avg
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores NaN for a null average.
func (r *AggregateReport) UnmarshalJSON(data []byte) error {
	var in aggregateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = AggregateReport(in.aggregateAlias)
	r.Average = math.NaN()
	if in.Average != nil {
		r.Average = *in.Average
	}
	return nil
}
