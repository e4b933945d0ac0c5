package credit

import (
	"context"
	"errors"
	"math"
	"time"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/usecase/rules"

	"gorm.io/gorm"
)

type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
	RatingNotRated  Rating = "NotRated"
)

const (
	MaxScore = 1000

	baseScore       = 200
	repaymentWeight = 500
	tenureWeight    = 150
	overdueWeight   = 150
	writeOffPenalty = 100
	tenureCapMonths = 60
)

type Factors struct {
	LoansConsidered int     `json:"loans_considered"`
	OnTimeLoans     int     `json:"on_time_loans"`
	OverdueLoans    int     `json:"overdue_loans"`
	WrittenOff      int     `json:"written_off"`
	TenureMonths    int     `json:"tenure_months"`
	OnTimeRatio     float64 `json:"on_time_ratio"`
	OverdueRatio    float64 `json:"overdue_ratio"`
}

type Score struct {
	MemberID   string    `json:"member_id"`
	Score      int       `json:"score"`
	Rating     Rating    `json:"rating"`
	Factors    Factors   `json:"factors"`
	ComputedAt time.Time `json:"computed_at"`
}

type ThresholdSource interface {
	Current(ctx context.Context) rules.Snapshot
}

type Scorer struct {
	members member.Repository
	loans   loan.Repository
	rules   ThresholdSource
	now     func() time.Time
}

func NewScorer(members member.Repository, loans loan.Repository, rs ThresholdSource) *Scorer {
	return &Scorer{members: members, loans: loans, rules: rs, now: time.Now}
}

// Score rates a member's repayment history. Members who never had a loan
// disbursed are NotRated with a zero score.
func (s *Scorer) Score(ctx context.Context, memberID string) (Score, error) {
	m, err := s.members.GetByMemberID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Score{}, member.ErrNotFound
		}
		return Score{}, err
	}
	history, err := s.loans.ListByMember(ctx, memberID)
	if err != nil {
		return Score{}, err
	}

	now := s.now()
	grace := time.Duration(s.rules.Current(ctx).GracePeriodDays) * 24 * time.Hour
	f := Factors{TenureMonths: m.MonthsSinceJoining(now)}
	for _, l := range history {
		switch {
		case l.Status == loan.StatusPaid:
			f.LoansConsidered++
			if l.PaidOnTime(grace) {
				f.OnTimeLoans++
			}
		case l.Status.IsRunning():
			f.LoansConsidered++
			if l.IsOverdue(now, grace) {
				f.OverdueLoans++
			} else {
				f.OnTimeLoans++
			}
		case l.Status == loan.StatusWrittenOff:
			f.LoansConsidered++
			f.WrittenOff++
		}
	}

	out := Score{MemberID: memberID, Factors: f, ComputedAt: now.UTC()}
	if f.LoansConsidered == 0 {
		out.Rating = RatingNotRated
		return out, nil
	}
	out.Score = Compute(&out.Factors)
	out.Rating = RatingFor(out.Score)
	return out, nil
}

// Compute fills the ratios on f and returns the clamped score.
func Compute(f *Factors) int {
	if f.LoansConsidered > 0 {
		f.OnTimeRatio = float64(f.OnTimeLoans) / float64(f.LoansConsidered)
		f.OverdueRatio = float64(f.OverdueLoans) / float64(f.LoansConsidered)
	}
	tenure := math.Min(float64(f.TenureMonths), tenureCapMonths) / tenureCapMonths

	raw := baseScore +
		repaymentWeight*f.OnTimeRatio +
		tenureWeight*tenure +
		overdueWeight*(1-f.OverdueRatio) -
		writeOffPenalty*float64(f.WrittenOff)

	return int(math.Round(math.Max(0, math.Min(MaxScore, raw))))
}

func RatingFor(score int) Rating {
	switch {
	case score >= 800:
		return RatingExcellent
	case score >= 650:
		return RatingGood
	case score >= 500:
		return RatingFair
	}
	return RatingPoor
}
