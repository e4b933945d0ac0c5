package testdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	loanDomain "coop-loans/internal/domain/loan"
	memberDomain "coop-loans/internal/domain/member"
	savingsDomain "coop-loans/internal/domain/savings"
	workflowDomain "coop-loans/internal/domain/workflow"
	"coop-loans/internal/infrastructure/db"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open returns a migrated in-memory sqlite database private to t.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", seq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// sqlite serialises writers anyway; one conn avoids "database is locked"
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func Member(t testing.TB, gdb *gorm.DB, memberID string, joined time.Time) *memberDomain.Member {
	t.Helper()
	m := &memberDomain.Member{
		MemberID:       memberID,
		FullName:       "Member " + memberID,
		MembershipType: memberDomain.TypeOrdinary,
		Status:         memberDomain.StatusActive,
		JoinedAt:       joined.UTC(),
	}
	if err := gdb.Create(m).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}

func Contribution(t testing.TB, gdb *gorm.DB, memberID string, amount string, typ savingsDomain.Type, at time.Time) {
	t.Helper()
	c := &savingsDomain.Contribution{
		MemberID:      memberID,
		Amount:        D(amount),
		Type:          typ,
		Status:        savingsDomain.StatusCompleted,
		ContributedAt: at.UTC(),
	}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
}

func LoanType(t testing.TB, gdb *gorm.DB, lt *loanDomain.LoanType) *loanDomain.LoanType {
	t.Helper()
	if lt == nil {
		lt = &loanDomain.LoanType{
			Name:          "Regular",
			InterestRate:  D("12"),
			MinAmount:     D("10000"),
			MaxAmount:     D("1000000"),
			MinTermMonths: 3,
			MaxTermMonths: 24,
			RiskClass:     loanDomain.RiskStandard,
			Active:        true,
		}
	}
	if err := gdb.Create(lt).Error; err != nil {
		t.Fatalf("seed loan type: %v", err)
	}
	return lt
}

// Template seeds an active loan template over [min, max]; max "" is open.
func Template(t testing.TB, gdb *gorm.DB, name, min, max string, priority int, roles ...string) *workflowDomain.Template {
	t.Helper()
	tpl := &workflowDomain.Template{
		Name:       name,
		EntityType: workflowDomain.EntityLoan,
		MinAmount:  D(min),
		Levels:     workflowDomain.JoinRoles(roles),
		Priority:   priority,
		Active:     true,
	}
	if max != "" {
		tpl.MaxAmount = decimal.NewNullDecimal(D(max))
	}
	if err := gdb.Create(tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}
