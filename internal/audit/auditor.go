package audit

import (
	"context"

	"github.com/nao1215/sitescore/internal/model"
)

// Auditor audits one page and returns its report.
// Implementations are not required to be safe for concurrent use.
type Auditor interface {
	Audit(ctx context.Context, pageURL string) (*model.AuditReport, error)
}

// AuditorFunc adapts a function to the Auditor interface.
type AuditorFunc func(ctx context.Context, pageURL string) (*model.AuditReport, error)

// Audit calls f.
func (f AuditorFunc) Audit(ctx context.Context, pageURL string) (*model.AuditReport, error) {
	return f(ctx, pageURL)
}
