package savingsmock

import (
	"context"
	"time"

	domain "coop-loans/internal/domain/savings"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn            func(ctx context.Context, c *domain.Contribution) error
	TotalsFn            func(ctx context.Context, memberID string, since *time.Time) (domain.Totals, error)
	ContributionDatesFn func(ctx context.Context, memberID string, since *time.Time) ([]time.Time, error)
}

// Fixed returns a Repo reporting t and no contribution dates.
func Fixed(t domain.Totals) *Repo {
	return &Repo{
		TotalsFn: func(context.Context, string, *time.Time) (domain.Totals, error) { return t, nil },
		ContributionDatesFn: func(context.Context, string, *time.Time) ([]time.Time, error) {
			return nil, nil
		},
	}
}

func (r *Repo) Create(ctx context.Context, c *domain.Contribution) error {
	if r.CreateFn != nil {
		return r.CreateFn(ctx, c)
	}
	return nil
}

func (r *Repo) Totals(ctx context.Context, memberID string, since *time.Time) (domain.Totals, error) {
	if r.TotalsFn != nil {
		return r.TotalsFn(ctx, memberID, since)
	}
	return domain.Totals{}, context.Canceled
}

func (r *Repo) ContributionDates(ctx context.Context, memberID string, since *time.Time) ([]time.Time, error) {
	if r.ContributionDatesFn != nil {
		return r.ContributionDatesFn(ctx, memberID, since)
	}
	return nil, context.Canceled
}
