package savings

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c *Contribution) error
	// since == nil means the whole ledger.
	Totals(ctx context.Context, memberID string, since *time.Time) (Totals, error)
	// Dates of completed contributions, used for contributing-month counts.
	ContributionDates(ctx context.Context, memberID string, since *time.Time) ([]time.Time, error)
}
