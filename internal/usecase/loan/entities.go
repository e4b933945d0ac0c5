package loan

import (
	"time"

	domain "coop-loans/internal/domain/loan"
	"coop-loans/internal/usecase/workflow"

	"github.com/shopspring/decimal"
)

type GuarantorInput struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

type CollateralInput struct {
	Type           string `json:"type"`
	EstimatedValue string `json:"estimated_value"`
	Description    string `json:"description"`
}

// ApplyInput carries raw amounts as strings; they are parsed with
// money.Parse so precision is never lost to float64.
type ApplyInput struct {
	MemberID   string            `json:"-"`
	LoanTypeID uint64            `json:"loan_type_id"`
	Amount     string            `json:"amount"`
	TermMonths int               `json:"term_months"`
	Purpose    string            `json:"purpose"`
	Guarantors []GuarantorInput  `json:"guarantors"`
	Collateral []CollateralInput `json:"collateral"`
}

type RepaymentInput struct {
	Reference string `json:"-"`
	Amount    string `json:"amount"`
}

type GuarantorDTO struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

type CollateralDTO struct {
	Type           string          `json:"type"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Description    string          `json:"description,omitempty"`
}

type LoanDTO struct {
	Reference          string                `json:"reference"`
	MemberID           string                `json:"member_id"`
	LoanTypeID         uint64                `json:"loan_type_id"`
	LoanType           string                `json:"loan_type,omitempty"`
	Principal          decimal.Decimal       `json:"principal"`
	InterestRate       decimal.Decimal       `json:"interest_rate"`
	TermMonths         int                   `json:"term_months"`
	TotalPayable       decimal.Decimal       `json:"total_payable"`
	AmountPaid         decimal.Decimal       `json:"amount_paid"`
	Outstanding        decimal.Decimal       `json:"outstanding"`
	MonthlyInstallment decimal.Decimal       `json:"monthly_installment"`
	Purpose            string                `json:"purpose"`
	Status             string                `json:"status"`
	DisbursedAt        *time.Time            `json:"disbursed_at,omitempty"`
	DueAt              *time.Time            `json:"due_at,omitempty"`
	PaidAt             *time.Time            `json:"paid_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	Guarantors         []GuarantorDTO        `json:"guarantors,omitempty"`
	Collateral         []CollateralDTO       `json:"collateral,omitempty"`
	Approval           *workflow.ApprovalDTO `json:"approval,omitempty"`
	// RoutingPending marks a pending loan that has no approval pipeline yet.
	RoutingPending bool `json:"routing_pending"`
}

type LoanTypeDTO struct {
	ID                uint64          `json:"id"`
	Name              string          `json:"name"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	MinAmount         decimal.Decimal `json:"min_amount"`
	MaxAmount         decimal.Decimal `json:"max_amount"`
	MinTermMonths     int             `json:"min_term_months"`
	MaxTermMonths     int             `json:"max_term_months"`
	RequiresGuarantor bool            `json:"requires_guarantor"`
	GuarantorCount    int             `json:"guarantor_count"`
	RiskClass         string          `json:"risk_class"`
}

func toDTO(l *domain.Loan, lt *domain.LoanType, a *workflow.ApprovalDTO) *LoanDTO {
	dto := &LoanDTO{
		Reference:          l.Reference,
		MemberID:           l.MemberID,
		LoanTypeID:         l.LoanTypeID,
		Principal:          l.Principal,
		InterestRate:       l.InterestRate,
		TermMonths:         l.TermMonths,
		TotalPayable:       l.TotalPayable,
		AmountPaid:         l.AmountPaid,
		Outstanding:        l.Outstanding(),
		MonthlyInstallment: l.MonthlyInstallment(),
		Purpose:            l.Purpose,
		Status:             string(l.Status),
		DisbursedAt:        l.DisbursedAt,
		DueAt:              l.DueAt,
		PaidAt:             l.PaidAt,
		CreatedAt:          l.CreatedAt,
		Approval:           a,
		RoutingPending:     a == nil && l.Status == domain.StatusPending,
	}
	if lt != nil {
		dto.LoanType = lt.Name
	}
	for _, g := range l.Guarantors {
		dto.Guarantors = append(dto.Guarantors, GuarantorDTO{MemberID: g.GuarantorMemberID, Amount: g.Amount, Status: string(g.Status)})
	}
	for _, c := range l.Collateral {
		dto.Collateral = append(dto.Collateral, CollateralDTO{Type: c.Type, EstimatedValue: c.EstimatedValue, Description: c.Description})
	}
	return dto
}

func toTypeDTO(lt domain.LoanType) LoanTypeDTO {
	return LoanTypeDTO{
		ID:                lt.ID,
		Name:              lt.Name,
		InterestRate:      lt.InterestRate,
		MinAmount:         lt.MinAmount,
		MaxAmount:         lt.MaxAmount,
		MinTermMonths:     lt.MinTermMonths,
		MaxTermMonths:     lt.MaxTermMonths,
		RequiresGuarantor: lt.RequiresGuarantor,
		GuarantorCount:    lt.GuarantorCount,
		RiskClass:         string(lt.RiskClass),
	}
}
