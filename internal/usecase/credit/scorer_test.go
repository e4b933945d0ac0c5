package credit

import (
	"context"
	"testing"
	"time"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/testutil/loanmock"
	"coop-loans/internal/testutil/membermock"
	"coop-loans/internal/usecase/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type fixedRules struct{}

func (fixedRules) Current(context.Context) rules.Snapshot {
	return rules.Snapshot{Thresholds: rules.Thresholds{GracePeriodDays: 7}}
}

func at(t time.Time) *time.Time { return &t }

func paidLoan(onTime bool) loan.Loan {
	due := now.AddDate(0, -3, 0)
	paid := due.AddDate(0, 0, -1)
	if !onTime {
		paid = due.AddDate(0, 1, 0)
	}
	return loan.Loan{Status: loan.StatusPaid, DueAt: at(due), PaidAt: at(paid),
		TotalPayable: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(100)}
}

func scorer(tenureMonths int, history []loan.Loan) *Scorer {
	m := &member.Member{MemberID: "m1", JoinedAt: now.AddDate(0, -tenureMonths, 0)}
	loans := &loanmock.Repo{ListByMemberFn: func(context.Context, string) ([]loan.Loan, error) { return history, nil }}
	s := NewScorer(membermock.Fixed(m), loans, fixedRules{})
	s.now = func() time.Time { return now }
	return s
}

func TestScore_NotRatedWithoutHistory(t *testing.T) {
	pendingOnly := []loan.Loan{{Status: loan.StatusPending}, {Status: loan.StatusRejected}}
	got, err := scorer(24, pendingOnly).Score(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, RatingNotRated, got.Rating)
	assert.Zero(t, got.Score)
}

func TestScore_PerfectHistory(t *testing.T) {
	got, err := scorer(60, []loan.Loan{paidLoan(true), paidLoan(true)}).Score(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1000, got.Score)
	assert.Equal(t, RatingExcellent, got.Rating)
	assert.Equal(t, 2, got.Factors.OnTimeLoans)
}

func TestScore_LateAndWrittenOff(t *testing.T) {
	history := []loan.Loan{paidLoan(false), {Status: loan.StatusWrittenOff}}
	got, err := scorer(0, history).Score(context.Background(), "m1")
	require.NoError(t, err)
	// 200 + 0 + 0 + 150 - 100
	assert.Equal(t, 250, got.Score)
	assert.Equal(t, RatingPoor, got.Rating)
}

func TestScore_OverdueRunningLoan(t *testing.T) {
	running := loan.Loan{Status: loan.StatusActive, DueAt: at(now.AddDate(0, -1, 0)),
		TotalPayable: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(10)}
	got, err := scorer(30, []loan.Loan{paidLoan(true), running}).Score(context.Background(), "m1")
	require.NoError(t, err)
	// 200 + 500*0.5 + 150*0.5 + 150*0.5
	assert.Equal(t, 600, got.Score)
	assert.Equal(t, RatingFair, got.Rating)
	assert.Equal(t, 1, got.Factors.OverdueLoans)
}

func TestScore_MemberNotFound(t *testing.T) {
	s := NewScorer(&membermock.Repo{GetByMemberIDFn: func(context.Context, string) (*member.Member, error) {
		return nil, gorm.ErrRecordNotFound
	}}, &loanmock.Repo{}, fixedRules{})
	_, err := s.Score(context.Background(), "ghost")
	assert.ErrorIs(t, err, member.ErrNotFound)
}

func TestCompute_Monotonic(t *testing.T) {
	base := Factors{LoansConsidered: 4, OnTimeLoans: 2, OverdueLoans: 1, TenureMonths: 24}
	ref := Compute(&Factors{LoansConsidered: base.LoansConsidered, OnTimeLoans: base.OnTimeLoans, OverdueLoans: base.OverdueLoans, TenureMonths: base.TenureMonths})

	more := base
	more.OnTimeLoans++
	assert.GreaterOrEqual(t, Compute(&more), ref, "more on-time loans never lowers the score")

	more = base
	more.TenureMonths += 12
	assert.GreaterOrEqual(t, Compute(&more), ref, "longer tenure never lowers the score")

	worse := base
	worse.OverdueLoans++
	assert.LessOrEqual(t, Compute(&worse), ref, "more overdue loans never raises the score")

	worse = base
	worse.WrittenOff = 20
	assert.Equal(t, 0, Compute(&worse), "score is clamped at zero")

	capped := base
	capped.TenureMonths = 600
	atCap := base
	atCap.TenureMonths = 60
	assert.Equal(t, Compute(&atCap), Compute(&capped), "tenure factor is capped")
}

func TestRatingFor(t *testing.T) {
	assert.Equal(t, RatingExcellent, RatingFor(800))
	assert.Equal(t, RatingGood, RatingFor(799))
	assert.Equal(t, RatingGood, RatingFor(650))
	assert.Equal(t, RatingFair, RatingFor(500))
	assert.Equal(t, RatingPoor, RatingFor(499))
}
