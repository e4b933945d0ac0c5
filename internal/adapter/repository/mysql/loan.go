package mysql

import (
	"context"

	loanDomain "coop-loans/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Create inserts the loan row and, through gorm associations, its guarantors
// and collateral.
func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error
}

func (r *LoanRepository) GetByReference(ctx context.Context, reference string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := r.db.WithContext(ctx).
		Preload("Guarantors").
		Preload("Collateral").
		Where("reference = ?", reference).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LoanRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LoanRepository) ListByMember(ctx context.Context, memberID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *LoanRepository) ListByMemberAndStatus(ctx context.Context, memberID string, statuses ...loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	if len(statuses) == 0 {
		return out, nil
	}
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND LOWER(status) IN ?", memberID, raw).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *LoanRepository) AddRepayment(ctx context.Context, p *loanDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *LoanRepository) GetType(ctx context.Context, id uint64) (*loanDomain.LoanType, error) {
	var out loanDomain.LoanType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LoanRepository) ListTypes(ctx context.Context) ([]loanDomain.LoanType, error) {
	var out []loanDomain.LoanType
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&out).Error
	return out, err
}
