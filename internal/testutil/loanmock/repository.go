package loanmock

import (
	"context"

	domain "coop-loans/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset writes are no-ops; unset reads return context.Canceled.
type Repo struct {
	CreateFn                  func(ctx context.Context, l *domain.Loan) error
	SaveFn                    func(ctx context.Context, l *domain.Loan) error
	GetByReferenceFn          func(ctx context.Context, reference string) (*domain.Loan, error)
	GetByReferenceForUpdateFn func(ctx context.Context, reference string) (*domain.Loan, error)
	ListByMemberFn            func(ctx context.Context, memberID string) ([]domain.Loan, error)
	ListByMemberAndStatusFn   func(ctx context.Context, memberID string, statuses ...domain.Status) ([]domain.Loan, error)
	AddRepaymentFn            func(ctx context.Context, r *domain.Repayment) error
	GetTypeFn                 func(ctx context.Context, id uint64) (*domain.LoanType, error)
	ListTypesFn               func(ctx context.Context) ([]domain.LoanType, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByReference(ctx context.Context, reference string) (*domain.Loan, error) {
	if m.GetByReferenceFn != nil {
		return m.GetByReferenceFn(ctx, reference)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByReferenceForUpdate(ctx context.Context, reference string) (*domain.Loan, error) {
	if m.GetByReferenceForUpdateFn != nil {
		return m.GetByReferenceForUpdateFn(ctx, reference)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByMember(ctx context.Context, memberID string) ([]domain.Loan, error) {
	if m.ListByMemberFn != nil {
		return m.ListByMemberFn(ctx, memberID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByMemberAndStatus(ctx context.Context, memberID string, statuses ...domain.Status) ([]domain.Loan, error) {
	if m.ListByMemberAndStatusFn != nil {
		return m.ListByMemberAndStatusFn(ctx, memberID, statuses...)
	}
	return nil, context.Canceled
}

func (m *Repo) AddRepayment(ctx context.Context, r *domain.Repayment) error {
	if m.AddRepaymentFn != nil {
		return m.AddRepaymentFn(ctx, r)
	}
	return nil
}

func (m *Repo) GetType(ctx context.Context, id uint64) (*domain.LoanType, error) {
	if m.GetTypeFn != nil {
		return m.GetTypeFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) ListTypes(ctx context.Context) ([]domain.LoanType, error) {
	if m.ListTypesFn != nil {
		return m.ListTypesFn(ctx)
	}
	return nil, context.Canceled
}
