package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/savings"
	"coop-loans/internal/testutil/loanmock"
	"coop-loans/internal/testutil/savingsmock"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_Savings(t *testing.T) {
	sv := savingsmock.Fixed(savings.Totals{Total: d("300"), Mandatory: d("200"), Voluntary: d("100")})
	sv.ContributionDatesFn = func(context.Context, string, *time.Time) ([]time.Time, error) {
		return []time.Time{
			time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		}, nil
	}
	agg := NewAggregator(sv, &loanmock.Repo{}, nil).Savings(context.Background(), "m1", nil)

	assert.False(t, agg.Degraded)
	assert.True(t, agg.Total.Equal(d("300")))
	assert.Equal(t, 3, agg.ContributingMonths)
}

func TestAggregator_SavingsPassesWindow(t *testing.T) {
	var got *time.Time
	sv := &savingsmock.Repo{
		TotalsFn: func(_ context.Context, _ string, since *time.Time) (savings.Totals, error) {
			got = since
			return savings.Totals{}, nil
		},
		ContributionDatesFn: func(context.Context, string, *time.Time) ([]time.Time, error) { return nil, nil },
	}
	since := now.AddDate(0, -12, 0)
	NewAggregator(sv, nil, nil).Savings(context.Background(), "m1", &since)
	assert.Equal(t, &since, got)
}

func TestAggregator_SavingsDegraded(t *testing.T) {
	sv := savingsmock.Fixed(savings.Totals{Total: d("300")})
	sv.ContributionDatesFn = func(context.Context, string, *time.Time) ([]time.Time, error) {
		return nil, errors.New("lost connection")
	}
	agg := NewAggregator(sv, nil, nil).Savings(context.Background(), "m1", nil)

	assert.True(t, agg.Degraded)
	assert.Error(t, agg.Err)
	assert.True(t, agg.Total.IsZero(), "degraded aggregates are zeroed")
}

func TestAggregator_Loans(t *testing.T) {
	overdueAt := now.AddDate(0, -1, 0)
	futureDue := now.AddDate(0, 6, 0)
	lr := &loanmock.Repo{ListByMemberAndStatusFn: func(_ context.Context, _ string, st ...loan.Status) ([]loan.Loan, error) {
		assert.ElementsMatch(t, loan.OpenStatuses, st)
		return []loan.Loan{
			{Status: loan.StatusPending, Principal: d("90000"), TotalPayable: d("99000")},
			{Status: loan.StatusActive, Principal: d("100000"), TotalPayable: d("112000"), AmountPaid: d("12000"), DueAt: &futureDue},
			{Status: loan.StatusDisbursed, Principal: d("50000"), TotalPayable: d("56000"), AmountPaid: d("0"), DueAt: &overdueAt},
		}, nil
	}}

	agg := NewAggregator(nil, lr, nil).Loans(context.Background(), "m1", now, 7)

	assert.Equal(t, 3, agg.ActiveCount)
	assert.True(t, agg.OutstandingPrincipal.Equal(d("138000")), agg.OutstandingPrincipal.String())
	assert.True(t, agg.OutstandingBalance.Equal(d("156000")), agg.OutstandingBalance.String())
	assert.True(t, agg.HasOverdue)
	assert.Equal(t, 1, agg.OverdueCount)
	assert.True(t, agg.OverdueBalance.Equal(d("56000")))
}

func TestAggregator_LoansDegraded(t *testing.T) {
	lr := &loanmock.Repo{} // context.Canceled
	agg := NewAggregator(nil, lr, nil).Loans(context.Background(), "m1", now, 0)
	assert.True(t, agg.Degraded)
	assert.ErrorIs(t, agg.Err, context.Canceled)
}
