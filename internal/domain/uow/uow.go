package uow

import (
	"context"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/domain/savings"
	"coop-loans/internal/domain/workflow"
)

// Repos are bound to the same transaction.
type Repos struct {
	Members   member.Repository
	Savings   savings.Repository
	Loans     loan.Repository
	Workflows workflow.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the member row first; serializes loan creation per member
	WithinMemberTx(ctx context.Context, memberID string, fn func(r Repos, m *member.Member) error) error
	// lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, reference string, fn func(r Repos, l *loan.Loan) error) error
}
