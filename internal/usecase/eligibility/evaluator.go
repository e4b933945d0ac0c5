package eligibility

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/domain/savings"
	"coop-loans/internal/infrastructure/metrics"
	"coop-loans/internal/usecase/rules"
	"coop-loans/pkg/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrMemberNotFound is member.ErrNotFound, so either name matches.
var ErrMemberNotFound = member.ErrNotFound

// Rule codes reported in violations.
const (
	RuleMembershipDuration = "membership_duration"
	RuleMandatorySavings   = "mandatory_savings"
	RuleLoanLimit          = "loan_limit"
	RuleMinimumAmount      = "minimum_amount"
	RuleActiveLoans        = "active_loans"
	RuleOverdueLoans       = "overdue_loans"
	RuleGuarantors         = "guarantors"
	RuleMemberStatus       = "member_status"
	RuleLoanTerm           = "loan_term"
	RuleDataUnavailable    = "data_unavailable"
)

type Pledge struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type Request struct {
	MemberID   string
	Amount     decimal.Decimal
	TermMonths int // 0 skips the term check
	LoanType   *loan.LoanType
	Guarantors []Pledge
}

type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type Result struct {
	Eligible         bool             `json:"eligible"`
	Violations       []Violation      `json:"violations"`
	EffectiveLimit   decimal.Decimal  `json:"effective_limit"`
	MembershipMonths int              `json:"membership_months"`
	Savings          SavingsAggregate `json:"savings"`
	Loans            LoanAggregate    `json:"loans"`
	Degraded         bool             `json:"degraded"`
	EvaluatedAt      time.Time        `json:"evaluated_at"`
}

// Has reports whether rule is among the violations.
func (r Result) Has(rule string) bool {
	for _, v := range r.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

func (r Result) Rules() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Rule)
	}
	return out
}

// ThresholdSource is satisfied by *rules.Provider.
type ThresholdSource interface {
	Current(ctx context.Context) rules.Snapshot
}

// Sources are the repositories an evaluation reads from. Inside a unit of
// work they are the tx-bound ones.
type Sources struct {
	Savings savings.Repository
	Loans   loan.Repository
}

type Evaluator struct {
	members member.Repository
	src     Sources
	rules   ThresholdSource
	log     *zap.Logger
	now     func() time.Time
}

func NewEvaluator(members member.Repository, src Sources, rs ThresholdSource, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		members: members,
		src:     src,
		rules:   rs,
		log:     log.With(zap.String("component", "eligibility")),
		now:     time.Now,
	}
}

// Evaluate looks the member up and runs every rule. An unknown member is a
// caller error; any other lookup failure yields a degraded, ineligible result.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	m, err := e.members.GetByMemberID(ctx, req.MemberID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrMemberNotFound):
		metrics.EligibilityEvaluations.WithLabelValues("error").Inc()
		return Result{}, ErrMemberNotFound
	case err != nil:
		e.log.Warn("member lookup failed", zap.String("member_id", req.MemberID), zap.Error(err))
		metrics.DegradedAggregates.WithLabelValues("member").Inc()
		m = nil
	}
	return e.evaluate(ctx, e.src, m, req), nil
}

// EvaluateMember runs the rules for an already loaded (typically locked) member.
func (e *Evaluator) EvaluateMember(ctx context.Context, src Sources, m *member.Member, req Request) Result {
	return e.evaluate(ctx, src, m, req)
}

// EffectiveLimit is min(savings × multiplier, system max, type max).
func EffectiveLimit(totalSavings decimal.Decimal, th rules.Thresholds, lt *loan.LoanType) decimal.Decimal {
	limit := money.Min(totalSavings.Mul(th.LoanToSavingsMultiplier), th.SystemMaxLoanAmount)
	if lt != nil && lt.MaxAmount.IsPositive() {
		limit = money.Min(limit, lt.MaxAmount)
	}
	return limit
}

func (e *Evaluator) evaluate(ctx context.Context, src Sources, m *member.Member, req Request) Result {
	start := time.Now()
	defer func() { metrics.EligibilityDuration.Observe(time.Since(start).Seconds()) }()

	snap := e.rules.Current(ctx)
	th := snap.Thresholds
	now := e.now()

	var since *time.Time
	if th.SavingsWindowMonths > 0 {
		s := now.AddDate(0, -th.SavingsWindowMonths, 0)
		since = &s
	}
	agg := NewAggregator(src.Savings, src.Loans, e.log)
	sv := agg.Savings(ctx, req.MemberID, since)
	ln := agg.Loans(ctx, req.MemberID, now, th.GracePeriodDays)

	res := Result{
		Savings:        sv,
		Loans:          ln,
		EffectiveLimit: EffectiveLimit(sv.Total, th, req.LoanType),
		Degraded:       sv.Degraded || ln.Degraded || snap.Degraded || m == nil,
		EvaluatedAt:    now.UTC(),
		Violations:     []Violation{},
	}
	add := func(rule, format string, args ...any) {
		res.Violations = append(res.Violations, Violation{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	if res.Degraded {
		add(RuleDataUnavailable, "Eligibility data is temporarily unavailable; please try again later")
	}

	if m != nil {
		res.MembershipMonths = m.MonthsSinceJoining(now)
		if res.MembershipMonths < th.MinMembershipMonths {
			add(RuleMembershipDuration, "Membership of %d months is below the required %d months",
				res.MembershipMonths, th.MinMembershipMonths)
		}
		if m.Status == member.StatusSuspended {
			add(RuleMemberStatus, "Suspended members cannot apply for loans")
		}
	}

	if sv.Mandatory.LessThan(th.MinMandatorySavings) {
		add(RuleMandatorySavings, "Mandatory savings of %s are below the required %s",
			money.Format(sv.Mandatory), money.Format(th.MinMandatorySavings))
	}

	if req.Amount.GreaterThan(res.EffectiveLimit) {
		add(RuleLoanLimit, "Requested %s exceeds your loan limit of %s",
			money.Format(req.Amount), money.Format(res.EffectiveLimit))
	}

	if lt := req.LoanType; lt != nil {
		if req.Amount.LessThan(lt.MinAmount) {
			add(RuleMinimumAmount, "Requested %s is below the %s minimum for %s",
				money.Format(req.Amount), money.Format(lt.MinAmount), lt.Name)
		}
		if req.TermMonths > 0 && (req.TermMonths < lt.MinTermMonths || (lt.MaxTermMonths > 0 && req.TermMonths > lt.MaxTermMonths)) {
			add(RuleLoanTerm, "A term of %d months is outside the %d to %d month range for %s",
				req.TermMonths, lt.MinTermMonths, lt.MaxTermMonths, lt.Name)
		}
	}

	if ln.ActiveCount >= th.MaxActiveLoans {
		add(RuleActiveLoans, "You have %d active loans; the maximum is %d", ln.ActiveCount, th.MaxActiveLoans)
	}

	if ln.HasOverdue {
		add(RuleOverdueLoans, "You have %d overdue loan(s) with %s outstanding",
			ln.OverdueCount, money.Format(ln.OverdueBalance))
	}

	if msg := checkGuarantors(req, th); msg != "" {
		add(RuleGuarantors, "%s", msg)
	}

	res.Eligible = len(res.Violations) == 0
	e.record(req, res)
	return res
}

// GuarantorsRequired reports whether the amount or loan type calls for
// guarantors, and how many. A zero threshold disables the amount trigger.
func GuarantorsRequired(amount decimal.Decimal, th rules.Thresholds, lt *loan.LoanType) (bool, int) {
	required := th.GuarantorThreshold.IsPositive() && amount.GreaterThanOrEqual(th.GuarantorThreshold)
	count := th.MinGuarantorsRequired
	if lt != nil {
		required = required || lt.RequiresGuarantor
		if lt.GuarantorCount > count {
			count = lt.GuarantorCount
		}
	}
	if count < 1 {
		count = 1
	}
	return required, count
}

func checkGuarantors(req Request, th rules.Thresholds) string {
	required, need := GuarantorsRequired(req.Amount, th, req.LoanType)
	if !required {
		return ""
	}

	// distinct positive pledges from other members
	seen := make(map[string]struct{}, len(req.Guarantors))
	pledged := decimal.Zero
	for _, g := range req.Guarantors {
		id := strings.TrimSpace(g.MemberID)
		if id == "" || id == req.MemberID || !g.Amount.IsPositive() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pledged = pledged.Add(g.Amount)
	}

	var problems []string
	if len(seen) < need {
		problems = append(problems, fmt.Sprintf("At least %d guarantors are required; %d provided", need, len(seen)))
	}
	if pledged.LessThan(req.Amount) {
		problems = append(problems, fmt.Sprintf("Guarantor pledges of %s do not cover the requested %s",
			money.Format(pledged), money.Format(req.Amount)))
	}
	return strings.Join(problems, "; ")
}

func (e *Evaluator) record(req Request, res Result) {
	outcome := "eligible"
	if !res.Eligible {
		outcome = "ineligible"
	}
	metrics.EligibilityEvaluations.WithLabelValues(outcome).Inc()
	for _, v := range res.Violations {
		metrics.EligibilityViolations.WithLabelValues(v.Rule).Inc()
	}
	e.log.Debug("eligibility evaluated",
		zap.String("member_id", req.MemberID),
		zap.String("amount", req.Amount.String()),
		zap.Bool("eligible", res.Eligible),
		zap.Strings("violations", res.Rules()),
		zap.Bool("degraded", res.Degraded),
	)
}
