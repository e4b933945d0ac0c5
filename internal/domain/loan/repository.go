package loan

import "context"

type Repository interface {
	// Create writes the loan together with its guarantors and collateral.
	Create(ctx context.Context, l *Loan) error
	// Save updates the loan row only, never its associations.
	Save(ctx context.Context, l *Loan) error
	GetByReference(ctx context.Context, reference string) (*Loan, error)
	GetByReferenceForUpdate(ctx context.Context, reference string) (*Loan, error)
	ListByMember(ctx context.Context, memberID string) ([]Loan, error)
	ListByMemberAndStatus(ctx context.Context, memberID string, statuses ...Status) ([]Loan, error)
	AddRepayment(ctx context.Context, r *Repayment) error

	GetType(ctx context.Context, id uint64) (*LoanType, error)
	ListTypes(ctx context.Context) ([]LoanType, error)
}
