package domain

import "context"

// ReportCountSource supplies the four 2x2 contingency counts plus the
// database-wide total for a product x adverse-event pair. Implemented by the
// external pharmacovigilance collaborator; the statistical core never
// performs network I/O itself.
type ReportCountSource interface {
	ReportCounts(ctx context.Context, product, event string) (*ReportCounts, error)
}
