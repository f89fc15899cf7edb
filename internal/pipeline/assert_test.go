package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfwright/surfwright/internal/errs"
)

func TestEvaluateStepAssertEqualsPasses(t *testing.T) {
	report := map[string]any{"data": map[string]any{"title": "Example"}}
	outcome, err := EvaluateStepAssert(&StepAssert{Kind: "equals", Path: "data.title", Value: "Example"}, report)
	require.NoError(t, err)
	assert.True(t, outcome.Passed)
}

func TestEvaluateStepAssertTruthyFailsOnMissingPath(t *testing.T) {
	report := map[string]any{"data": map[string]any{}}
	outcome, err := EvaluateStepAssert(&StepAssert{Kind: "truthy", Path: "data.ok"}, report)
	require.Error(t, err)
	assert.False(t, outcome.Passed)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.CodeAssertFailed, e.Code)
}

func TestEvaluateStepAssertContains(t *testing.T) {
	report := map[string]any{"data": map[string]any{"url": "https://example.com/path"}}
	outcome, err := EvaluateStepAssert(&StepAssert{Kind: "contains", Path: "data.url", Value: "example.com"}, report)
	require.NoError(t, err)
	assert.True(t, outcome.Passed)
}

func TestEvaluateStepAssertNilIsNoop(t *testing.T) {
	outcome, err := EvaluateStepAssert(nil, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, outcome)
}

func TestEvaluateRequireGte(t *testing.T) {
	result := map[string]any{"linkCount": 4.0}
	outcomes := EvaluateRequire(map[string]map[string]float64{"gte": {"linkCount": 1}}, result)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Passed)
}

func TestEvaluateRequireGteFailsBelowThreshold(t *testing.T) {
	result := map[string]any{"linkCount": 0.0}
	outcomes := EvaluateRequire(map[string]map[string]float64{"gte": {"linkCount": 1}}, result)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Passed)
}

func TestEvaluateTerminationDeltaGteNeedsPrevious(t *testing.T) {
	spec := RepeatUntilSpec{UntilPath: "data.height", Predicate: "deltaGte", Threshold: 10}
	report := map[string]any{"data": map[string]any{"height": 100.0}}

	holds, current, err := evaluateTermination(spec, report, nil)
	require.NoError(t, err)
	assert.False(t, holds)
	assert.Equal(t, 100.0, current)

	previous := 80.0
	holds, current, err = evaluateTermination(spec, report, &previous)
	require.NoError(t, err)
	assert.True(t, holds)
	assert.Equal(t, 100.0, current)
}

func TestEvaluateTerminationGte(t *testing.T) {
	spec := RepeatUntilSpec{UntilPath: "data.count", Predicate: "gte", Threshold: 5}
	report := map[string]any{"data": map[string]any{"count": 6.0}}
	holds, _, err := evaluateTermination(spec, report, nil)
	require.NoError(t, err)
	assert.True(t, holds)
}
