package report

import (
	"io"

	"github.com/nao1215/sitescore/internal/model"
)

// Writer defines the interface for report output.
// Implementations write an aggregate report in one format.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AggregateReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It is used to print to the terminal and save a report file at once.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on the first error.
func (m *MultiWriter) Write(report *model.AggregateReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Rating is the Lighthouse score band of a page.
type Rating string

const (
	// RatingGood is a score of 0.90 or more.
	RatingGood Rating = "good"
	// RatingNeedsImprovement is a score from 0.50 to 0.89.
	RatingNeedsImprovement Rating = "needs improvement"
	// RatingPoor is a score below 0.50.
	RatingPoor Rating = "poor"
)

// RatingOf returns the band a score falls into.
func RatingOf(score float64) Rating {
	switch {
	case score >= 0.9:
		return RatingGood
	case score >= 0.5:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
