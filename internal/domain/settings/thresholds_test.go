package settings

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholds_Apply(t *testing.T) {
	var th Thresholds

	require.NoError(t, th.Apply(" Max_Active_Loans ", "3"))
	require.NoError(t, th.Apply(KeyLoanToSavingsMultiplier, "2.5"))
	require.NoError(t, th.Apply(KeyGuarantorThreshold, "250000.00"))

	assert.Equal(t, 3, th.MaxActiveLoans)
	assert.True(t, th.LoanToSavingsMultiplier.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, th.GuarantorThreshold.Equal(decimal.NewFromInt(250000)))
}

func TestThresholds_ApplyRejects(t *testing.T) {
	th := Thresholds{MaxActiveLoans: 2}

	err := th.Apply("no_such_key", "1")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	for _, bad := range []string{"two", "-1", ""} {
		err = th.Apply(KeyMaxActiveLoans, bad)
		assert.Truef(t, errors.Is(err, ErrInvalidValue), "value %q", bad)
	}
	assert.Equal(t, 2, th.MaxActiveLoans, "failed apply must not change the set")

	assert.ErrorIs(t, th.Apply(KeyPenaltyRate, "-0.5"), ErrInvalidValue)
}

func TestThresholds_ValuesRoundTrip(t *testing.T) {
	src := Thresholds{
		MinMembershipMonths:     6,
		MinMandatorySavings:     decimal.NewFromInt(20000),
		LoanToSavingsMultiplier: decimal.NewFromInt(3),
		SystemMaxLoanAmount:     decimal.NewFromInt(500000),
		MaxActiveLoans:          2,
		GuarantorThreshold:      decimal.NewFromInt(250000),
		MinGuarantorsRequired:   2,
		AutoApprovalLimit:       decimal.NewFromInt(50000),
		PenaltyRate:             decimal.RequireFromString("1.5"),
		GracePeriodDays:         7,
	}
	var dst Thresholds
	for k, v := range src.Values() {
		require.NoError(t, dst.Apply(k, v))
	}
	assert.Equal(t, src.MaxActiveLoans, dst.MaxActiveLoans)
	assert.True(t, src.PenaltyRate.Equal(dst.PenaltyRate))
	assert.True(t, src.SystemMaxLoanAmount.Equal(dst.SystemMaxLoanAmount))
	assert.Len(t, src.Values(), len(Keys))
}

func TestThresholds_Validate(t *testing.T) {
	ok := Thresholds{
		MaxActiveLoans:          1,
		LoanToSavingsMultiplier: decimal.NewFromInt(3),
		SystemMaxLoanAmount:     decimal.NewFromInt(1),
	}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.MaxActiveLoans = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidValue)

	bad = ok
	bad.LoanToSavingsMultiplier = decimal.Zero
	assert.ErrorIs(t, bad.Validate(), ErrInvalidValue)
}
