package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownKey   = errors.New("unknown business config key")
	ErrInvalidValue = errors.New("invalid business config value")
)

// Keys stored in business_config.config_key.
const (
	KeyMinMembershipMonths     = "min_membership_months"
	KeyMinMandatorySavings     = "min_mandatory_savings"
	KeyLoanToSavingsMultiplier = "loan_to_savings_multiplier"
	KeySystemMaxLoanAmount     = "system_max_loan_amount"
	KeyMaxActiveLoans          = "max_active_loans"
	KeyGuarantorThreshold      = "guarantor_threshold"
	KeyMinGuarantorsRequired   = "min_guarantors_required"
	KeyAutoApprovalLimit       = "auto_approval_limit"
	KeyPenaltyRate             = "penalty_rate"
	KeyGracePeriodDays         = "grace_period_days"
	KeySavingsWindowMonths     = "savings_window_months"
)

// Keys lists every recognised key in display order.
var Keys = []string{
	KeyMinMembershipMonths,
	KeyMinMandatorySavings,
	KeyLoanToSavingsMultiplier,
	KeySystemMaxLoanAmount,
	KeyMaxActiveLoans,
	KeyGuarantorThreshold,
	KeyMinGuarantorsRequired,
	KeyAutoApprovalLimit,
	KeyPenaltyRate,
	KeyGracePeriodDays,
	KeySavingsWindowMonths,
}

// Thresholds is the typed business rule set. Amounts are naira.
type Thresholds struct {
	MinMembershipMonths     int             `json:"min_membership_months"`
	MinMandatorySavings     decimal.Decimal `json:"min_mandatory_savings"`
	LoanToSavingsMultiplier decimal.Decimal `json:"loan_to_savings_multiplier"`
	SystemMaxLoanAmount     decimal.Decimal `json:"system_max_loan_amount"`
	MaxActiveLoans          int             `json:"max_active_loans"`
	GuarantorThreshold      decimal.Decimal `json:"guarantor_threshold"`
	MinGuarantorsRequired   int             `json:"min_guarantors_required"`
	AutoApprovalLimit       decimal.Decimal `json:"auto_approval_limit"`
	PenaltyRate             decimal.Decimal `json:"penalty_rate"` // % per month on overdue balance
	GracePeriodDays         int             `json:"grace_period_days"`
	SavingsWindowMonths     int             `json:"savings_window_months"` // 0 = all time
}

// Apply parses value and stores it under key. t is left untouched on error.
func (t *Thresholds) Apply(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case KeyMinMembershipMonths:
		return setInt(&t.MinMembershipMonths, key, value)
	case KeyMaxActiveLoans:
		return setInt(&t.MaxActiveLoans, key, value)
	case KeyMinGuarantorsRequired:
		return setInt(&t.MinGuarantorsRequired, key, value)
	case KeyGracePeriodDays:
		return setInt(&t.GracePeriodDays, key, value)
	case KeySavingsWindowMonths:
		return setInt(&t.SavingsWindowMonths, key, value)
	case KeyMinMandatorySavings:
		return setDec(&t.MinMandatorySavings, key, value)
	case KeyLoanToSavingsMultiplier:
		return setDec(&t.LoanToSavingsMultiplier, key, value)
	case KeySystemMaxLoanAmount:
		return setDec(&t.SystemMaxLoanAmount, key, value)
	case KeyGuarantorThreshold:
		return setDec(&t.GuarantorThreshold, key, value)
	case KeyAutoApprovalLimit:
		return setDec(&t.AutoApprovalLimit, key, value)
	case KeyPenaltyRate:
		return setDec(&t.PenaltyRate, key, value)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Values renders the set back into key/value strings.
func (t Thresholds) Values() map[string]string {
	return map[string]string{
		KeyMinMembershipMonths:     strconv.Itoa(t.MinMembershipMonths),
		KeyMinMandatorySavings:     t.MinMandatorySavings.String(),
		KeyLoanToSavingsMultiplier: t.LoanToSavingsMultiplier.String(),
		KeySystemMaxLoanAmount:     t.SystemMaxLoanAmount.String(),
		KeyMaxActiveLoans:          strconv.Itoa(t.MaxActiveLoans),
		KeyGuarantorThreshold:      t.GuarantorThreshold.String(),
		KeyMinGuarantorsRequired:   strconv.Itoa(t.MinGuarantorsRequired),
		KeyAutoApprovalLimit:       t.AutoApprovalLimit.String(),
		KeyPenaltyRate:             t.PenaltyRate.String(),
		KeyGracePeriodDays:         strconv.Itoa(t.GracePeriodDays),
		KeySavingsWindowMonths:     strconv.Itoa(t.SavingsWindowMonths),
	}
}

// Validate rejects sets the evaluator cannot work with.
func (t Thresholds) Validate() error {
	switch {
	case t.MaxActiveLoans < 1:
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidValue, KeyMaxActiveLoans)
	case !t.LoanToSavingsMultiplier.IsPositive():
		return fmt.Errorf("%w: %s must be positive", ErrInvalidValue, KeyLoanToSavingsMultiplier)
	case !t.SystemMaxLoanAmount.IsPositive():
		return fmt.Errorf("%w: %s must be positive", ErrInvalidValue, KeySystemMaxLoanAmount)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	*dst = n
	return nil
}

func setDec(dst *decimal.Decimal, key, value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	*dst = d
	return nil
}
