package uowmock

import (
	"context"
	"errors"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn       func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinMemberTxFn func(ctx context.Context, memberID string, fn func(r uow.Repos, m *member.Member) error) error
	WithinLoanTxFn   func(ctx context.Context, reference string, fn func(r uow.Repos, l *loan.Loan) error) error
}

// Passthrough runs every callback directly against repos. Member and loan
// lookups go through the repos, mirroring the real locking reads.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(repos) },
		WithinMemberTxFn: func(ctx context.Context, memberID string, fn func(uow.Repos, *member.Member) error) error {
			m, err := repos.Members.GetByMemberIDForUpdate(ctx, memberID)
			if err != nil {
				return err
			}
			return fn(repos, m)
		},
		WithinLoanTxFn: func(ctx context.Context, reference string, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := repos.Loans.GetByReferenceForUpdate(ctx, reference)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
	}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinMemberTx(ctx context.Context, memberID string, fn func(r uow.Repos, mem *member.Member) error) error {
	if m.WithinMemberTxFn != nil {
		return m.WithinMemberTxFn(ctx, memberID, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, reference string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, reference, fn)
	}
	return errUnimplemented
}
