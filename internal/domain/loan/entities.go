package loan

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"coop-loans/internal/domain/enum"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("loan not found")
	ErrTypeNotFound      = errors.New("loan type not found")
	ErrInvalidTransition = errors.New("invalid loan status transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusDisbursed  Status = "disbursed"
	StatusActive     Status = "active"
	StatusPaid       Status = "paid"
	StatusRejected   Status = "rejected"
	StatusWrittenOff Status = "written_off"
)

// OpenStatuses occupy one of the member's active-loan slots.
var OpenStatuses = []Status{StatusPending, StatusApproved, StatusDisbursed, StatusActive}

// RunningStatuses carry an outstanding balance.
var RunningStatuses = []Status{StatusDisbursed, StatusActive}

var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusDisbursed, StatusRejected},
	StatusDisbursed: {StatusActive, StatusPaid, StatusWrittenOff},
	StatusActive:    {StatusPaid, StatusWrittenOff},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(enum.Normalize(s)); st {
	case StatusPending, StatusApproved, StatusDisbursed, StatusActive,
		StatusPaid, StatusRejected, StatusWrittenOff:
		return st, nil
	}
	return "", fmt.Errorf("invalid loan status: %q", s)
}

func (s *Status) Scan(src any) error {
	raw, err := enum.ScanString(src)
	if err != nil || raw == "" {
		*s = ""
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Status) Value() (driver.Value, error) { return string(s), nil }

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s Status) IsOpen() bool    { return in(s, OpenStatuses) }
func (s Status) IsRunning() bool { return in(s, RunningStatuses) }

func in(s Status, set []Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

type RiskClass string

const (
	RiskLow      RiskClass = "low"
	RiskStandard RiskClass = "standard"
	RiskHigh     RiskClass = "high"
)

// Table: loan_types
type LoanType struct {
	ID                uint64          `gorm:"primaryKey;column:id"`
	Name              string          `gorm:"column:name;size:80;not null"`
	InterestRate      decimal.Decimal `gorm:"column:interest_rate;type:decimal(6,2);not null"`
	MinAmount         decimal.Decimal `gorm:"column:min_amount;type:decimal(18,2);not null"`
	MaxAmount         decimal.Decimal `gorm:"column:max_amount;type:decimal(18,2);not null"`
	MinTermMonths     int             `gorm:"column:min_term_months;not null"`
	MaxTermMonths     int             `gorm:"column:max_term_months;not null"`
	RequiresGuarantor bool            `gorm:"column:requires_guarantor"`
	GuarantorCount    int             `gorm:"column:guarantor_count"`
	RiskClass         RiskClass       `gorm:"column:risk_class;type:varchar(20);default:'standard'"`
	Active            bool            `gorm:"column:active;default:true"`
}

func (LoanType) TableName() string { return "loan_types" }

// Table: loans
type Loan struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"-"`
	Reference    string          `gorm:"column:reference;size:32;uniqueIndex:ux_loans_reference" json:"reference"`
	MemberID     string          `gorm:"column:member_id;size:32;index:idx_loans_member_status" json:"member_id"`
	LoanTypeID   uint64          `gorm:"column:loan_type_id;not null" json:"loan_type_id"`
	Principal    decimal.Decimal `gorm:"column:principal;type:decimal(18,2);not null" json:"principal"`
	InterestRate decimal.Decimal `gorm:"column:interest_rate;type:decimal(6,2);not null" json:"interest_rate"`
	TermMonths   int             `gorm:"column:term_months;not null" json:"term_months"`
	TotalPayable decimal.Decimal `gorm:"column:total_payable;type:decimal(18,2);not null" json:"total_payable"`
	AmountPaid   decimal.Decimal `gorm:"column:amount_paid;type:decimal(18,2);not null;default:0" json:"amount_paid"`
	Purpose      string          `gorm:"column:purpose;type:text" json:"purpose"`
	Status       Status          `gorm:"column:status;type:varchar(20);index:idx_loans_member_status;default:'pending'" json:"status"`
	DisbursedAt  *time.Time      `gorm:"column:disbursed_at" json:"disbursed_at,omitempty"`
	DueAt        *time.Time      `gorm:"column:due_at" json:"due_at,omitempty"`
	PaidAt       *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Guarantors []Guarantor  `gorm:"foreignKey:LoanID" json:"guarantors,omitempty"`
	Collateral []Collateral `gorm:"foreignKey:LoanID" json:"collateral,omitempty"`
}

func (Loan) TableName() string { return "loans" }

// TotalPayable applies flat annual interest over the term.
func TotalPayable(principal, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	interest := principal.
		Mul(annualRate).Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(termMonths))).Div(decimal.NewFromInt(12))
	return principal.Add(interest).Round(2)
}

// Outstanding is what is still owed, never negative.
func (l Loan) Outstanding() decimal.Decimal {
	return decimal.Max(l.TotalPayable.Sub(l.AmountPaid), decimal.Zero)
}

// OutstandingPrincipal attributes payments to principal first.
func (l Loan) OutstandingPrincipal() decimal.Decimal {
	return decimal.Max(l.Principal.Sub(l.AmountPaid), decimal.Zero)
}

func (l Loan) MonthlyInstallment() decimal.Decimal {
	if l.TermMonths <= 0 {
		return l.TotalPayable
	}
	return l.TotalPayable.Div(decimal.NewFromInt(int64(l.TermMonths))).Round(2)
}

// IsOverdue reports whether the final expected payment date plus grace has
// passed while a balance remains.
func (l Loan) IsOverdue(now time.Time, grace time.Duration) bool {
	if !l.Status.IsRunning() || l.DueAt == nil {
		return false
	}
	return now.After(l.DueAt.Add(grace)) && l.AmountPaid.LessThan(l.TotalPayable)
}

// PaidOnTime is meaningful for paid loans only.
func (l Loan) PaidOnTime(grace time.Duration) bool {
	if l.Status != StatusPaid || l.PaidAt == nil || l.DueAt == nil {
		return false
	}
	return !l.PaidAt.After(l.DueAt.Add(grace))
}

type GuarantorStatus string

const (
	GuarantorPending  GuarantorStatus = "pending"
	GuarantorAccepted GuarantorStatus = "accepted"
	GuarantorDeclined GuarantorStatus = "declined"
)

// Table: loan_guarantors
type Guarantor struct {
	ID                uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID            uint64          `gorm:"column:loan_id;not null;index" json:"-"`
	GuarantorMemberID string          `gorm:"column:guarantor_member_id;size:32;not null" json:"guarantor_member_id"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status            GuarantorStatus `gorm:"column:status;type:varchar(20);default:'pending'" json:"status"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Guarantor) TableName() string { return "loan_guarantors" }

// Table: loan_collateral
type Collateral struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID         uint64          `gorm:"column:loan_id;not null;index" json:"-"`
	Type           string          `gorm:"column:type;size:40;not null" json:"type"`
	EstimatedValue decimal.Decimal `gorm:"column:estimated_value;type:decimal(18,2);not null" json:"estimated_value"`
	Description    string          `gorm:"column:description;type:text" json:"description"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Collateral) TableName() string { return "loan_collateral" }

// Table: loan_repayments
type Repayment struct {
	ID        uint64          `gorm:"primaryKey;column:id"`
	LoanID    uint64          `gorm:"column:loan_id;not null;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Reference string          `gorm:"column:reference;size:32;uniqueIndex"`
	PaidAt    time.Time       `gorm:"column:paid_at;not null"`
}

func (Repayment) TableName() string { return "loan_repayments" }
