package db

import (
	"context"
	"time"

	loanDomain "coop-loans/internal/domain/loan"
	memberDomain "coop-loans/internal/domain/member"
	savingsDomain "coop-loans/internal/domain/savings"
	settingsDomain "coop-loans/internal/domain/settings"
	workflowDomain "coop-loans/internal/domain/workflow"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func OpenGorm(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := OpenGormWithDialector(mysql.Open(dsn))
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("gorm: connected")
	}
	return db, nil
}

// OpenGormWithDialector opens, tunes the pool and pings.
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		DisableAutomaticPing: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
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
	}
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(Models()...)
}

// SeedTemplates installs the stock loan approval pipelines when none exist.
func SeedTemplates(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&workflowDomain.Template{}).
		Where("entity_type = ?", workflowDomain.EntityLoan).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	tpls := []workflowDomain.Template{
		{
			Name: "Standard loan", EntityType: workflowDomain.EntityLoan,
			MinAmount: decimal.Zero, MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(500_000)),
			Levels: workflowDomain.JoinRoles([]string{"loan_officer", "credit_committee"}), Priority: 10, Active: true,
		},
		{
			Name: "Large loan", EntityType: workflowDomain.EntityLoan,
			MinAmount: decimal.RequireFromString("500000.01"),
			Levels:    workflowDomain.JoinRoles([]string{"loan_officer", "credit_committee", "board"}), Priority: 20, Active: true,
		},
	}
	return db.WithContext(ctx).Create(&tpls).Error
}
