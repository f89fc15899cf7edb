package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckBudgetPassesWithinLimits(t *testing.T) {
	records := []Record{{OK: true, DurationMs: 10}, {OK: true, DurationMs: 20}}
	summary := Summarize(records, false)
	result := CheckBudget(Budget{MaxP95LatencyMs: 1000, MaxErrorRate: 0.5}, records, summary, 0)
	assert.True(t, result.Passed)
}

func TestCheckBudgetFlagsErrorRateViolation(t *testing.T) {
	records := []Record{{OK: false}, {OK: false}, {OK: true}}
	summary := Summarize(records, false)
	result := CheckBudget(Budget{MaxErrorRate: 0.1}, records, summary, 0)
	assert.False(t, result.Passed)
	assert.Equal(t, "maxErrorRate", result.Violations[0].Field)
}

func TestCheckBudgetFlagsRequestCountViolation(t *testing.T) {
	records := make([]Record, 5)
	summary := Summarize(records, false)
	result := CheckBudget(Budget{MaxRequests: 3}, records, summary, 0)
	assert.False(t, result.Passed)
}

func TestErrorRateEmptyRecordsIsZero(t *testing.T) {
	assert.Equal(t, float64(0), errorRate(nil))
}
