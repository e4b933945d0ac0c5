package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/domain/uow"
	domainWorkflow "coop-loans/internal/domain/workflow"
	"coop-loans/internal/infrastructure/notify"
	"coop-loans/internal/usecase/eligibility"
	"coop-loans/internal/usecase/workflow"
	"coop-loans/pkg/id"
	"coop-loans/pkg/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxPurposeLen = 500
	maxTermMonths = 360
	adminRole     = "administrator"
)

type Usecase struct {
	uow       uow.UnitOfWork
	repos     uow.Repos // pool-bound, for reads outside a tx
	evaluator *eligibility.Evaluator
	router    *workflow.Router
	rules     workflow.ThresholdSource
	notifier  notify.Dispatcher
	log       *zap.Logger
	now       func() time.Time
}

// NewUsecase: repos are the non-transactional repositories; writes go through tx.
func NewUsecase(tx uow.UnitOfWork, repos uow.Repos, ev *eligibility.Evaluator, router *workflow.Router, rs workflow.ThresholdSource, n notify.Dispatcher, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		uow:       tx,
		repos:     repos,
		evaluator: ev,
		router:    router,
		rules:     rs,
		notifier:  n,
		log:       log.With(zap.String("component", "loan")),
		now:       time.Now,
	}
}

type application struct {
	amount     decimal.Decimal
	loanType   *loan.LoanType
	guarantors []loan.Guarantor
	pledges    []eligibility.Pledge
	collateral []loan.Collateral
}

// Apply validates, evaluates and stores a loan application, then starts its
// approval workflow. Evaluation and writes share one member-locked tx so two
// concurrent applications by a member cannot both pass the active-loan check.
func (u *Usecase) Apply(ctx context.Context, in ApplyInput) (*LoanDTO, error) {
	app, err := u.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	// refresh thresholds before taking the member lock
	u.rules.Current(ctx)

	var (
		l          *loan.Loan
		approval   *workflow.ApprovalDTO
		routingErr error
	)
	err = u.uow.WithinMemberTx(ctx, in.MemberID, func(r uow.Repos, m *member.Member) error {
		res := u.evaluator.EvaluateMember(ctx, eligibility.Sources{Savings: r.Savings, Loans: r.Loans}, m, eligibility.Request{
			MemberID:   m.MemberID,
			Amount:     app.amount,
			TermMonths: in.TermMonths,
			LoanType:   app.loanType,
			Guarantors: app.pledges,
		})
		if !res.Eligible {
			return &EligibilityError{Result: res}
		}

		now := u.now().UTC()
		l = &loan.Loan{
			Reference:    id.NewReference("LN", now),
			MemberID:     m.MemberID,
			LoanTypeID:   app.loanType.ID,
			Principal:    app.amount,
			InterestRate: app.loanType.InterestRate,
			TermMonths:   in.TermMonths,
			TotalPayable: loan.TotalPayable(app.amount, app.loanType.InterestRate, in.TermMonths),
			AmountPaid:   decimal.Zero,
			Purpose:      strings.TrimSpace(in.Purpose),
			Status:       loan.StatusPending,
			Guarantors:   app.guarantors,
			Collateral:   app.collateral,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}

		a, err := u.router.Start(ctx, r, l, app.loanType)
		if errors.Is(err, workflow.ErrNoTemplate) {
			// keep the pending loan; routing is retried separately
			routingErr = err
			return nil
		}
		approval = a
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, member.ErrNotFound
		}
		return nil, err
	}

	dto := toDTO(l, app.loanType, approval)
	u.log.Info("loan application stored",
		zap.String("reference", l.Reference),
		zap.String("member_id", l.MemberID),
		zap.String("amount", l.Principal.String()),
		zap.String("status", string(l.Status)),
		zap.Bool("routing_pending", dto.RoutingPending))

	notify.Send(ctx, u.notifier, u.log, notify.Event{
		Kind: notify.KindLoanSubmitted, MemberID: l.MemberID, Reference: l.Reference,
		Message: fmt.Sprintf("Your application %s for %s has been received", l.Reference, money.Format(l.Principal)),
	})
	if routingErr != nil {
		u.log.Warn("workflow initiation failed", zap.String("reference", l.Reference), zap.Error(routingErr))
		notify.Send(ctx, u.notifier, u.log, notify.Event{
			Kind: notify.KindRoutingPending, Role: adminRole, Reference: l.Reference,
			Message: fmt.Sprintf("Loan %s has no matching approval workflow", l.Reference),
		})
		return dto, &WorkflowInitiationError{Reference: l.Reference, Err: routingErr}
	}
	u.notifyRouted(ctx, l, approval)
	return dto, nil
}

// Check runs the same validation and eligibility rules as Apply without
// writing anything.
func (u *Usecase) Check(ctx context.Context, in ApplyInput) (eligibility.Result, error) {
	app, err := u.validate(ctx, in)
	if err != nil {
		return eligibility.Result{}, err
	}
	return u.evaluator.Evaluate(ctx, eligibility.Request{
		MemberID:   in.MemberID,
		Amount:     app.amount,
		TermMonths: in.TermMonths,
		LoanType:   app.loanType,
		Guarantors: app.pledges,
	})
}

// RetryRouting starts the workflow for a pending loan saved without one.
// A loan that already has an approval is returned unchanged.
func (u *Usecase) RetryRouting(ctx context.Context, reference string) (*LoanDTO, error) {
	var (
		dto     *LoanDTO
		started bool
		l       *loan.Loan
		a       *workflow.ApprovalDTO
	)
	u.rules.Current(ctx)
	err := u.uow.WithinLoanTx(ctx, reference, func(r uow.Repos, locked *loan.Loan) error {
		l = locked
		lt, err := r.Loans.GetType(ctx, l.LoanTypeID)
		if err != nil {
			return err
		}
		existing, err := u.router.ForLoan(ctx, r, l.Reference)
		switch {
		case err == nil:
			dto = toDTO(l, lt, existing)
			return nil
		case !errors.Is(err, domainWorkflow.ErrNotFound):
			return err
		}
		if l.Status != loan.StatusPending {
			return fmt.Errorf("%w: routing requires a pending loan, got %s", loan.ErrInvalidTransition, l.Status)
		}
		a, err = u.router.Start(ctx, r, l, lt)
		if err != nil {
			if errors.Is(err, workflow.ErrNoTemplate) {
				return &WorkflowInitiationError{Reference: l.Reference, Err: err}
			}
			return err
		}
		started = true
		dto = toDTO(l, lt, a)
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	if started {
		u.notifyRouted(ctx, l, a)
	}
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, reference string) (*LoanDTO, error) {
	l, err := u.repos.Loans.GetByReference(ctx, reference)
	if err != nil {
		return nil, notFound(err)
	}
	lt, err := u.repos.Loans.GetType(ctx, l.LoanTypeID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	a, err := u.router.ForLoan(ctx, u.repos, l.Reference)
	if err != nil && !errors.Is(err, domainWorkflow.ErrNotFound) {
		return nil, err
	}
	return toDTO(l, lt, a), nil
}

func (u *Usecase) ListByMember(ctx context.Context, memberID string) ([]LoanDTO, error) {
	if _, err := u.repos.Members.GetByMemberID(ctx, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, member.ErrNotFound
		}
		return nil, err
	}
	loans, err := u.repos.Loans.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(loans))
	for i := range loans {
		dto := toDTO(&loans[i], nil, nil)
		dto.RoutingPending = false // approvals are not looked up for listings
		out = append(out, *dto)
	}
	return out, nil
}

func (u *Usecase) ListTypes(ctx context.Context) ([]LoanTypeDTO, error) {
	types, err := u.repos.Loans.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LoanTypeDTO, 0, len(types))
	for _, lt := range types {
		out = append(out, toTypeDTO(lt))
	}
	return out, nil
}

// Disburse pays out an approved loan and starts its repayment clock.
func (u *Usecase) Disburse(ctx context.Context, reference string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, reference, func(r uow.Repos, l *loan.Loan) error {
		if !l.Status.CanTransitionTo(loan.StatusDisbursed) {
			return fmt.Errorf("%w: cannot disburse a %s loan", loan.ErrInvalidTransition, l.Status)
		}
		now := u.now().UTC()
		due := now.AddDate(0, l.TermMonths, 0)
		l.Status = loan.StatusDisbursed
		l.DisbursedAt = &now
		l.DueAt = &due
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l, nil, nil)
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	notify.Send(ctx, u.notifier, u.log, notify.Event{
		Kind: notify.KindLoanDisbursed, MemberID: dto.MemberID, Reference: dto.Reference,
		Message: fmt.Sprintf("Loan %s of %s has been disbursed; final repayment due %s",
			dto.Reference, money.Format(dto.Principal), dto.DueAt.Format("2 Jan 2006")),
	})
	return dto, nil
}

// RecordRepayment applies a payment. The first payment activates a disbursed
// loan; clearing the balance marks it paid.
func (u *Usecase) RecordRepayment(ctx context.Context, in RepaymentInput) (*LoanDTO, error) {
	amount, err := money.Parse(in.Amount)
	if err != nil || !amount.IsPositive() {
		verr := &ValidationError{}
		verr.add("amount", "must be a positive amount with at most 2 decimal places")
		return nil, verr
	}

	var dto *LoanDTO
	err = u.uow.WithinLoanTx(ctx, in.Reference, func(r uow.Repos, l *loan.Loan) error {
		if !l.Status.IsRunning() {
			return fmt.Errorf("%w: cannot repay a %s loan", loan.ErrInvalidTransition, l.Status)
		}
		if amount.GreaterThan(l.Outstanding()) {
			verr := &ValidationError{}
			verr.add("amount", "exceeds the outstanding balance of %s", money.Format(l.Outstanding()))
			return verr
		}
		now := u.now().UTC()
		if err := r.Loans.AddRepayment(ctx, &loan.Repayment{
			LoanID:    l.ID,
			Amount:    amount,
			Reference: id.NewReference("RP", now),
			PaidAt:    now,
		}); err != nil {
			return err
		}
		l.AmountPaid = l.AmountPaid.Add(amount)
		switch {
		case l.AmountPaid.GreaterThanOrEqual(l.TotalPayable):
			l.Status = loan.StatusPaid
			l.PaidAt = &now
		case l.Status == loan.StatusDisbursed:
			l.Status = loan.StatusActive
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l, nil, nil)
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	notify.Send(ctx, u.notifier, u.log, notify.Event{
		Kind: notify.KindRepayment, MemberID: dto.MemberID, Reference: dto.Reference,
		Message: fmt.Sprintf("Payment of %s received; outstanding %s", money.Format(amount), money.Format(dto.Outstanding)),
	})
	return dto, nil
}

// WriteOff closes a running loan as unrecoverable.
func (u *Usecase) WriteOff(ctx context.Context, reference string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, reference, func(r uow.Repos, l *loan.Loan) error {
		if !l.Status.CanTransitionTo(loan.StatusWrittenOff) {
			return fmt.Errorf("%w: cannot write off a %s loan", loan.ErrInvalidTransition, l.Status)
		}
		l.Status = loan.StatusWrittenOff
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l, nil, nil)
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	u.log.Warn("loan written off", zap.String("reference", reference), zap.String("outstanding", dto.Outstanding.String()))
	return dto, nil
}

func (u *Usecase) validate(ctx context.Context, in ApplyInput) (*application, error) {
	verr := &ValidationError{}
	app := &application{}

	amount, err := money.Parse(in.Amount)
	switch {
	case err != nil:
		verr.add("amount", "must be a number with at most 2 decimal places")
	case !amount.IsPositive():
		verr.add("amount", "must be greater than zero")
	default:
		app.amount = amount
	}

	if in.TermMonths <= 0 || in.TermMonths > maxTermMonths {
		verr.add("term_months", "must be between 1 and %d", maxTermMonths)
	}
	purpose := strings.TrimSpace(in.Purpose)
	switch {
	case purpose == "":
		verr.add("purpose", "is required")
	case len(purpose) > maxPurposeLen:
		verr.add("purpose", "must be at most %d characters", maxPurposeLen)
	}

	if in.LoanTypeID == 0 {
		verr.add("loan_type_id", "is required")
	} else {
		lt, err := u.repos.Loans.GetType(ctx, in.LoanTypeID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			verr.add("loan_type_id", "unknown loan type %d", in.LoanTypeID)
		case err != nil:
			return nil, err
		case !lt.Active:
			verr.add("loan_type_id", "loan type %q is not available", lt.Name)
		default:
			app.loanType = lt
		}
	}

	seen := make(map[string]bool, len(in.Guarantors))
	for i, g := range in.Guarantors {
		field := fmt.Sprintf("guarantors[%d]", i)
		gid := strings.TrimSpace(g.MemberID)
		pledge, err := money.Parse(g.Amount)
		switch {
		case gid == "":
			verr.add(field+".member_id", "is required")
			continue
		case gid == in.MemberID:
			verr.add(field+".member_id", "members cannot guarantee their own loan")
			continue
		case seen[gid]:
			verr.add(field+".member_id", "duplicate guarantor %s", gid)
			continue
		case err != nil || !pledge.IsPositive():
			verr.add(field+".amount", "must be a positive amount with at most 2 decimal places")
			continue
		}
		seen[gid] = true

		gm, err := u.repos.Members.GetByMemberID(ctx, gid)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			verr.add(field+".member_id", "unknown member %s", gid)
			continue
		case err != nil:
			return nil, err
		case gm.Status == member.StatusSuspended:
			verr.add(field+".member_id", "member %s is suspended and cannot guarantee loans", gid)
			continue
		}
		app.guarantors = append(app.guarantors, loan.Guarantor{GuarantorMemberID: gid, Amount: pledge, Status: loan.GuarantorPending})
		app.pledges = append(app.pledges, eligibility.Pledge{MemberID: gid, Amount: pledge})
	}

	for i, c := range in.Collateral {
		field := fmt.Sprintf("collateral[%d]", i)
		value, err := money.Parse(c.EstimatedValue)
		if strings.TrimSpace(c.Type) == "" {
			verr.add(field+".type", "is required")
			continue
		}
		if err != nil || !value.IsPositive() {
			verr.add(field+".estimated_value", "must be a positive amount with at most 2 decimal places")
			continue
		}
		app.collateral = append(app.collateral, loan.Collateral{
			Type:           strings.TrimSpace(c.Type),
			EstimatedValue: value,
			Description:    strings.TrimSpace(c.Description),
		})
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return app, nil
}

func (u *Usecase) notifyRouted(ctx context.Context, l *loan.Loan, a *workflow.ApprovalDTO) {
	if a == nil {
		return
	}
	if a.AutoApproved {
		notify.Send(ctx, u.notifier, u.log, notify.Event{
			Kind: notify.KindLoanApproved, MemberID: l.MemberID, Reference: l.Reference,
			Message: fmt.Sprintf("Loan %s has been approved", l.Reference),
		})
		return
	}
	notify.Send(ctx, u.notifier, u.log, notify.Event{
		Kind: notify.KindApprovalRequired, Role: a.CurrentRole, Reference: l.Reference,
		Message: fmt.Sprintf("Loan %s for %s awaits %s review", l.Reference, money.Format(l.Principal), a.CurrentRole),
		Data:    map[string]string{"approval_id": a.ApprovalID},
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loan.ErrNotFound
	}
	return err
}
