package mysql

import (
	"context"

	"coop-loans/internal/domain/loan"
	"coop-loans/internal/domain/member"
	"coop-loans/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Members:   &MemberRepository{db: tx},
		Savings:   &SavingsRepository{db: tx},
		Loans:     &LoanRepository{db: tx},
		Workflows: &WorkflowRepository{db: tx},
	}
}

// Repos returns repositories bound to the plain connection pool.
func (u *GormUoW) Repos() uow.Repos { return reposFor(u.db) }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinMemberTx(ctx context.Context, memberID string, fn func(r uow.Repos, m *member.Member) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the member row up-front so concurrent applications queue here
		m, err := r.Members.GetByMemberIDForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		return fn(r, m)
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, reference string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
