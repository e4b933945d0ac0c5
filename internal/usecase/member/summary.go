package member

import (
	"context"
	"errors"
	"time"

	"coop-loans/internal/domain/loan"
	domain "coop-loans/internal/domain/member"
	"coop-loans/internal/domain/savings"
	"coop-loans/internal/usecase/credit"
	"coop-loans/internal/usecase/eligibility"
	"coop-loans/internal/usecase/rules"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Summary struct {
	MemberID         string                       `json:"member_id"`
	FullName         string                       `json:"full_name"`
	Status           string                       `json:"status"`
	MembershipMonths int                          `json:"membership_months"`
	Savings          eligibility.SavingsAggregate `json:"savings"`
	Loans            eligibility.LoanAggregate    `json:"loans"`
	EstimatedPenalty decimal.Decimal              `json:"estimated_penalty"`
	EffectiveLimit   decimal.Decimal              `json:"effective_limit"`
	// Credit is nil when the score could not be computed.
	Credit      *credit.Score `json:"credit,omitempty"`
	Degraded    bool          `json:"degraded"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type ThresholdSource interface {
	Current(ctx context.Context) rules.Snapshot
}

type Usecase struct {
	members domain.Repository
	savings savings.Repository
	agg     *eligibility.Aggregator
	scorer  *credit.Scorer
	rules   ThresholdSource
	log     *zap.Logger
	now     func() time.Time
}

func NewUsecase(members domain.Repository, sv savings.Repository, loans loan.Repository, scorer *credit.Scorer, rs ThresholdSource, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "member"))
	return &Usecase{
		members: members,
		savings: sv,
		agg:     eligibility.NewAggregator(sv, loans, log),
		scorer:  scorer,
		rules:   rs,
		log:     log,
		now:     time.Now,
	}
}

// Summary is the member dashboard view. Like eligibility it degrades instead
// of failing when an aggregate cannot be read; only an unknown member errors.
func (u *Usecase) Summary(ctx context.Context, memberID string) (*Summary, error) {
	m, err := u.members.GetByMemberID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	snap := u.rules.Current(ctx)
	th := snap.Thresholds
	now := u.now()

	var since *time.Time
	if th.SavingsWindowMonths > 0 {
		s := now.AddDate(0, -th.SavingsWindowMonths, 0)
		since = &s
	}
	sv := u.agg.Savings(ctx, memberID, since)
	ln := u.agg.Loans(ctx, memberID, now, th.GracePeriodDays)

	out := &Summary{
		MemberID:         m.MemberID,
		FullName:         m.FullName,
		Status:           string(m.Status),
		MembershipMonths: m.MonthsSinceJoining(now),
		Savings:          sv,
		Loans:            ln,
		EstimatedPenalty: Penalty(ln.OverdueBalance, th.PenaltyRate),
		EffectiveLimit:   eligibility.EffectiveLimit(sv.Total, th, nil),
		Degraded:         sv.Degraded || ln.Degraded || snap.Degraded,
		GeneratedAt:      now.UTC(),
	}

	score, err := u.scorer.Score(ctx, memberID)
	if err != nil {
		u.log.Warn("credit score unavailable", zap.String("member_id", memberID), zap.Error(err))
		out.Degraded = true
	} else {
		out.Credit = &score
	}
	return out, nil
}

// Penalty is the overdue balance times the monthly penalty rate (a percentage).
func Penalty(overdue, ratePct decimal.Decimal) decimal.Decimal {
	if !overdue.IsPositive() || !ratePct.IsPositive() {
		return decimal.Zero
	}
	return overdue.Mul(ratePct).Div(decimal.NewFromInt(100)).Round(2)
}
