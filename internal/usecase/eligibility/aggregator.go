package eligibility

import (
	"context"
	"time"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/savings"
	"coop-loans/internal/infrastructure/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SavingsAggregate struct {
	Total              decimal.Decimal `json:"total"`
	Mandatory          decimal.Decimal `json:"mandatory"`
	Voluntary          decimal.Decimal `json:"voluntary"`
	ContributingMonths int             `json:"contributing_months"`
	Degraded           bool            `json:"degraded,omitempty"`
	Err                error           `json:"-"`
}

type LoanAggregate struct {
	// ActiveCount covers every open loan, pending applications included.
	ActiveCount          int             `json:"active_count"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	OutstandingBalance   decimal.Decimal `json:"outstanding_balance"`
	HasOverdue           bool            `json:"has_overdue"`
	OverdueCount         int             `json:"overdue_count"`
	OverdueBalance       decimal.Decimal `json:"overdue_balance"`
	Degraded             bool            `json:"degraded,omitempty"`
	Err                  error           `json:"-"`
}

// Aggregator derives a member's savings and loan position. Reads only.
// Storage failures produce a zero aggregate flagged Degraded, never an error.
type Aggregator struct {
	savings savings.Repository
	loans   loan.Repository
	log     *zap.Logger
}

func NewAggregator(s savings.Repository, l loan.Repository, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{savings: s, loans: l, log: log}
}

// Savings sums completed contributions since the given time (nil = all time).
func (a *Aggregator) Savings(ctx context.Context, memberID string, since *time.Time) SavingsAggregate {
	totals, err := a.savings.Totals(ctx, memberID, since)
	if err != nil {
		return a.degradedSavings(memberID, err)
	}
	dates, err := a.savings.ContributionDates(ctx, memberID, since)
	if err != nil {
		return a.degradedSavings(memberID, err)
	}
	return SavingsAggregate{
		Total:              totals.Total,
		Mandatory:          totals.Mandatory,
		Voluntary:          totals.Voluntary,
		ContributingMonths: distinctMonths(dates),
	}
}

// Loans summarises open loans. A loan is overdue once its due date plus
// graceDays has passed with a balance left.
func (a *Aggregator) Loans(ctx context.Context, memberID string, now time.Time, graceDays int) LoanAggregate {
	open, err := a.loans.ListByMemberAndStatus(ctx, memberID, loan.OpenStatuses...)
	if err != nil {
		a.log.Warn("loan aggregate degraded", zap.String("member_id", memberID), zap.Error(err))
		metrics.DegradedAggregates.WithLabelValues("loans").Inc()
		return LoanAggregate{
			OutstandingPrincipal: decimal.Zero,
			OutstandingBalance:   decimal.Zero,
			OverdueBalance:       decimal.Zero,
			Degraded:             true,
			Err:                  err,
		}
	}

	grace := time.Duration(graceDays) * 24 * time.Hour
	agg := LoanAggregate{
		OutstandingPrincipal: decimal.Zero,
		OutstandingBalance:   decimal.Zero,
		OverdueBalance:       decimal.Zero,
	}
	for _, l := range open {
		agg.ActiveCount++
		if !l.Status.IsRunning() {
			continue
		}
		agg.OutstandingPrincipal = agg.OutstandingPrincipal.Add(l.OutstandingPrincipal())
		agg.OutstandingBalance = agg.OutstandingBalance.Add(l.Outstanding())
		if l.IsOverdue(now, grace) {
			agg.OverdueCount++
			agg.OverdueBalance = agg.OverdueBalance.Add(l.Outstanding())
		}
	}
	agg.HasOverdue = agg.OverdueCount > 0
	return agg
}

func (a *Aggregator) degradedSavings(memberID string, err error) SavingsAggregate {
	a.log.Warn("savings aggregate degraded", zap.String("member_id", memberID), zap.Error(err))
	metrics.DegradedAggregates.WithLabelValues("savings").Inc()
	return SavingsAggregate{
		Total:     decimal.Zero,
		Mandatory: decimal.Zero,
		Voluntary: decimal.Zero,
		Degraded:  true,
		Err:       err,
	}
}

func distinctMonths(dates []time.Time) int {
	seen := make(map[int]struct{}, len(dates))
	for _, d := range dates {
		d = d.UTC()
		seen[d.Year()*12+int(d.Month())] = struct{}{}
	}
	return len(seen)
}
