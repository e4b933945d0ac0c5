package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coop-loans/internal/domain/enum"
	domainLoan "coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/uow"
	domain "coop-loans/internal/domain/workflow"
	"coop-loans/internal/infrastructure/metrics"
	"coop-loans/internal/infrastructure/notify"
	"coop-loans/internal/usecase/rules"
	"coop-loans/pkg/id"
	"coop-loans/pkg/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNoTemplate = errors.New("no approval workflow matches the loan")

const systemActor = "system"

// Plan is the approval pipeline chosen for an amount.
type Plan struct {
	AutoApprove bool
	Template    *domain.Template
	Roles       []string
}

// Route picks a plan: auto-approval up to the threshold, otherwise the first
// matching template. templates must be ordered by priority.
func Route(templates []domain.Template, amount decimal.Decimal, riskClass string, th rules.Thresholds) (Plan, error) {
	if amount.LessThanOrEqual(th.AutoApprovalLimit) {
		return Plan{AutoApprove: true}, nil
	}
	for i := range templates {
		if templates[i].Matches(amount, riskClass) {
			t := templates[i]
			return Plan{Template: &t, Roles: t.Roles()}, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: amount %s, risk class %q", ErrNoTemplate, money.Format(amount), riskClass)
}

type ThresholdSource interface {
	Current(ctx context.Context) rules.Snapshot
}

type Router struct {
	uow      uow.UnitOfWork
	rules    ThresholdSource
	notifier notify.Dispatcher
	log      *zap.Logger
	now      func() time.Time
}

func NewRouter(tx uow.UnitOfWork, rs ThresholdSource, n notify.Dispatcher, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		uow:      tx,
		rules:    rs,
		notifier: n,
		log:      log.With(zap.String("component", "workflow")),
		now:      time.Now,
	}
}

// Start routes a pending loan and persists its approval with the caller's
// tx-bound repositories. Auto-approved loans move straight to approved.
func (r *Router) Start(ctx context.Context, repos uow.Repos, l *domainLoan.Loan, lt *domainLoan.LoanType) (*ApprovalDTO, error) {
	templates, err := repos.Workflows.ListTemplates(ctx, domain.EntityLoan)
	if err != nil {
		return nil, err
	}
	risk := ""
	if lt != nil {
		risk = string(lt.RiskClass)
	}
	plan, err := Route(templates, l.Principal, risk, r.rules.Current(ctx).Thresholds)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	a := &domain.Approval{
		ApprovalID: id.NewID32(),
		EntityType: domain.EntityLoan,
		EntityID:   l.Reference,
		Status:     domain.StatusPending,
	}
	if plan.AutoApprove {
		a.Status = domain.StatusApproved
		a.CompletedAt = &now
	} else {
		a.TemplateID = &plan.Template.ID
		a.CurrentLevel = 1
		a.TotalLevels = len(plan.Roles)
		a.Levels = domain.JoinRoles(plan.Roles)
	}
	if err := repos.Workflows.CreateApproval(ctx, a); err != nil {
		return nil, err
	}

	var actions []domain.Action
	if plan.AutoApprove {
		act := domain.Action{
			ApprovalID: a.ApprovalID,
			Role:       systemActor,
			ActorID:    systemActor,
			Decision:   domain.DecisionApprove,
			Comment:    "within auto-approval limit",
			ActedAt:    now,
		}
		if err := repos.Workflows.AddAction(ctx, &act); err != nil {
			return nil, err
		}
		if err := transitionLoan(l, domainLoan.StatusApproved); err != nil {
			return nil, err
		}
		if err := repos.Loans.Save(ctx, l); err != nil {
			return nil, err
		}
		actions = append(actions, act)
		metrics.WorkflowTransitions.WithLabelValues("auto_approve").Inc()
	} else {
		metrics.WorkflowTransitions.WithLabelValues("start").Inc()
	}

	r.log.Info("workflow started",
		zap.String("approval_id", a.ApprovalID),
		zap.String("reference", l.Reference),
		zap.Bool("auto_approved", plan.AutoApprove),
		zap.Int("levels", a.TotalLevels))
	return toDTO(a, actions), nil
}

func (r *Router) Approve(ctx context.Context, in ApproveInput) (*ApprovalDTO, error) {
	return r.decide(ctx, in.ApprovalID, in.ActorID, in.Role, in.Comment, domain.DecisionApprove)
}

// Reject is terminal at any level.
func (r *Router) Reject(ctx context.Context, in RejectInput) (*ApprovalDTO, error) {
	return r.decide(ctx, in.ApprovalID, in.ActorID, in.Role, in.Comment, domain.DecisionReject)
}

func (r *Router) decide(ctx context.Context, approvalID, actorID, role, comment string, decision domain.Decision) (*ApprovalDTO, error) {
	var (
		dto      *ApprovalDTO
		memberID string
	)
	err := r.uow.WithinTx(ctx, func(repos uow.Repos) error {
		// lock the approval row; decisions on one approval serialize here
		a, err := repos.Workflows.GetByApprovalIDForUpdate(ctx, approvalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if a.Status.IsFinal() {
			return domain.ErrAlreadyFinal
		}
		current := a.CurrentRole()
		if current == "" || enum.Normalize(role) != current {
			return fmt.Errorf("%w: level %d expects %q", domain.ErrWrongRole, a.CurrentLevel, current)
		}

		now := r.now().UTC()
		if err := repos.Workflows.AddAction(ctx, &domain.Action{
			ApprovalID: a.ApprovalID,
			Level:      a.CurrentLevel,
			Role:       current,
			ActorID:    actorID,
			Decision:   decision,
			Comment:    comment,
			ActedAt:    now,
		}); err != nil {
			return err
		}

		var loanStatus domainLoan.Status
		switch {
		case decision == domain.DecisionReject:
			a.Status = domain.StatusRejected
			a.CompletedAt = &now
			loanStatus = domainLoan.StatusRejected
		case a.CurrentLevel >= a.TotalLevels:
			a.Status = domain.StatusApproved
			a.CompletedAt = &now
			loanStatus = domainLoan.StatusApproved
		default:
			a.CurrentLevel++
		}
		if err := repos.Workflows.SaveApproval(ctx, a); err != nil {
			return err
		}

		if loanStatus != "" {
			l, err := repos.Loans.GetByReferenceForUpdate(ctx, a.EntityID)
			if err != nil {
				return err
			}
			if err := transitionLoan(l, loanStatus); err != nil {
				return err
			}
			if err := repos.Loans.Save(ctx, l); err != nil {
				return err
			}
			memberID = l.MemberID
		}

		actions, err := repos.Workflows.ListActions(ctx, a.ApprovalID)
		if err != nil {
			return err
		}
		dto = toDTO(a, actions)
		return nil
	})
	if err != nil {
		return nil, err
	}

	label := string(decision)
	if dto.Status == string(domain.StatusPending) {
		label = "advance"
	}
	metrics.WorkflowTransitions.WithLabelValues(label).Inc()
	r.log.Info("workflow decision",
		zap.String("approval_id", dto.ApprovalID),
		zap.String("reference", dto.EntityID),
		zap.String("decision", string(decision)),
		zap.String("actor_id", actorID),
		zap.String("status", dto.Status),
		zap.Int("current_level", dto.CurrentLevel))

	r.notifyDecision(ctx, dto, memberID)
	return dto, nil
}

// Get returns the approval and its decision history.
func (r *Router) Get(ctx context.Context, approvalID string) (*ApprovalDTO, error) {
	var dto *ApprovalDTO
	err := r.uow.WithinTx(ctx, func(repos uow.Repos) error {
		a, err := repos.Workflows.GetByApprovalID(ctx, approvalID)
		if err != nil {
			return err
		}
		actions, err := repos.Workflows.ListActions(ctx, a.ApprovalID)
		if err != nil {
			return err
		}
		dto = toDTO(a, actions)
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return dto, err
}

// ForLoan returns the approval attached to a loan reference.
func (r *Router) ForLoan(ctx context.Context, repos uow.Repos, reference string) (*ApprovalDTO, error) {
	a, err := repos.Workflows.GetByEntity(ctx, domain.EntityLoan, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDTO(a, nil), nil
}

func (r *Router) notifyDecision(ctx context.Context, dto *ApprovalDTO, memberID string) {
	switch dto.Status {
	case string(domain.StatusApproved):
		notify.Send(ctx, r.notifier, r.log, notify.Event{
			Kind: notify.KindLoanApproved, MemberID: memberID, Reference: dto.EntityID,
			Message: fmt.Sprintf("Loan %s has been approved", dto.EntityID),
		})
	case string(domain.StatusRejected):
		notify.Send(ctx, r.notifier, r.log, notify.Event{
			Kind: notify.KindLoanRejected, MemberID: memberID, Reference: dto.EntityID,
			Message: fmt.Sprintf("Loan %s was not approved", dto.EntityID),
		})
	default:
		notify.Send(ctx, r.notifier, r.log, notify.Event{
			Kind: notify.KindApprovalRequired, Role: dto.CurrentRole, Reference: dto.EntityID,
			Message: fmt.Sprintf("Loan %s awaits %s review (level %d of %d)",
				dto.EntityID, dto.CurrentRole, dto.CurrentLevel, dto.TotalLevels),
			Data: map[string]string{"approval_id": dto.ApprovalID},
		})
	}
}

func transitionLoan(l *domainLoan.Loan, next domainLoan.Status) error {
	if !l.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domainLoan.ErrInvalidTransition, l.Status, next)
	}
	l.Status = next
	return nil
}
