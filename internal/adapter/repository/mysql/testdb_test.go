package mysql

import (
	"testing"
	"time"

	loanDomain "coop-loans/internal/domain/loan"
	memberDomain "coop-loans/internal/domain/member"
	savingsDomain "coop-loans/internal/domain/savings"
	settingsDomain "coop-loans/internal/domain/settings"
	workflowDomain "coop-loans/internal/domain/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB creates an in-memory sqlite DB with every table migrated.
// A single connection keeps the in-memory database alive across the pool.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&memberDomain.Member{},
		&savingsDomain.Contribution{},
		&loanDomain.LoanType{},
		&loanDomain.Loan{},
		&loanDomain.Guarantor{},
		&loanDomain.Collateral{},
		&loanDomain.Repayment{},
		&workflowDomain.Template{},
		&workflowDomain.Approval{},
		&workflowDomain.Action{},
		&settingsDomain.Setting{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedMember(t *testing.T, db *gorm.DB, memberID string, joined time.Time) *memberDomain.Member {
	t.Helper()
	m := &memberDomain.Member{
		MemberID:       memberID,
		FullName:       "Test Member",
		MembershipType: memberDomain.TypeOrdinary,
		Status:         memberDomain.StatusActive,
		JoinedAt:       joined.UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}

func seedLoanType(t *testing.T, db *gorm.DB) *loanDomain.LoanType {
	t.Helper()
	lt := &loanDomain.LoanType{
		Name:          "Regular",
		InterestRate:  dec("12"),
		MinAmount:     dec("10000"),
		MaxAmount:     dec("1000000"),
		MinTermMonths: 3,
		MaxTermMonths: 24,
		RiskClass:     loanDomain.RiskStandard,
		Active:        true,
	}
	if err := db.Create(lt).Error; err != nil {
		t.Fatalf("seed loan type: %v", err)
	}
	return lt
}

func makeLoan(reference, memberID string, loanTypeID uint64) *loanDomain.Loan {
	return &loanDomain.Loan{
		Reference:    reference,
		MemberID:     memberID,
		LoanTypeID:   loanTypeID,
		Principal:    dec("100000"),
		InterestRate: dec("12"),
		TermMonths:   12,
		TotalPayable: dec("112000"),
		AmountPaid:   decimal.Zero,
		Purpose:      "school fees",
		Status:       loanDomain.StatusPending,
	}
}
