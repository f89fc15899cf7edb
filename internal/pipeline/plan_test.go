package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanSplitsFieldsFromEnvelope(t *testing.T) {
	plan, err := ParsePlan([]byte(`{"steps":[{"id":"open","as":"home","url":"https://example.com"}]}`))
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "open", plan.Steps[0].ID)
	assert.Equal(t, "home", plan.Steps[0].As)
	assert.Contains(t, plan.Steps[0].Fields, "url")
}

func TestLintFlagsUnknownStepID(t *testing.T) {
	plan, err := ParsePlan([]byte(`{"steps":[{"id":"teleport"}]}`))
	require.NoError(t, err)
	issues := Lint(plan)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "unsupported")
}

func TestLintFlagsMissingRequiredField(t *testing.T) {
	plan, err := ParsePlan([]byte(`{"steps":[{"id":"open"}]}`))
	require.NoError(t, err)
	issues := Lint(plan)
	require.Len(t, issues, 1)
	assert.Equal(t, "url", issues[0].Field)
}

func TestLintFlagsDuplicateAlias(t *testing.T) {
	plan, err := ParsePlan([]byte(`{"steps":[
		{"id":"open","as":"x","url":"https://a.example"},
		{"id":"count","as":"x","selector":"a"}
	]}`))
	require.NoError(t, err)
	issues := Lint(plan)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "reused")
}

func TestDoctorReportsValidPlan(t *testing.T) {
	result, err := Doctor(AcquireOptions{
		PlanJSON: `{"steps":[{"id":"open","url":"https://example.com"}]}`,
		ReadFile: func(string) ([]byte, error) { return nil, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "doctor", result.Mode)
	assert.True(t, result.Valid)
	assert.Equal(t, SourcePlanJSON, result.Source)
	assert.Equal(t, 1, result.StepCount)
}

func TestAcquireRejectsMultipleSources(t *testing.T) {
	_, _, err := Acquire(AcquireOptions{PlanJSON: "{}", PlanPath: "x.json"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "exactly one"))
}

func TestAcquireRejectsZeroSources(t *testing.T) {
	_, _, err := Acquire(AcquireOptions{})
	require.Error(t, err)
}
