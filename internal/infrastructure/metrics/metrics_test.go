package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(EligibilityViolations.WithLabelValues("loan_limit"))
	EligibilityViolations.WithLabelValues("loan_limit").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(EligibilityViolations.WithLabelValues("loan_limit")))

	before = testutil.ToFloat64(DegradedAggregates.WithLabelValues("savings"))
	DegradedAggregates.WithLabelValues("savings").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(DegradedAggregates.WithLabelValues("savings")))
}

func TestHistogramRegistered(t *testing.T) {
	EligibilityDuration.Observe(0.01)
	assert.Equal(t, 1, testutil.CollectAndCount(EligibilityDuration))
}
