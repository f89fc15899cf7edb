package pipeline

import (
	"fmt"
	"strings"

	"github.com/surfwright/surfwright/internal/errs"
)

// AssertOutcome records whether a step's assertion held (spec §4.6).
type AssertOutcome struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// EvaluateStepAssert checks a's predicate against reportMap (the step's own
// report, flattened), returning E_ASSERT_FAILED on failure (spec §4.6).
func EvaluateStepAssert(a *StepAssert, reportMap map[string]any) (*AssertOutcome, error) {
	if a == nil {
		return nil, nil
	}

	actual, found := dotGetPath(reportMap, a.Path)
	outcome := &AssertOutcome{Kind: a.Kind, Path: a.Path}

	switch a.Kind {
	case "equals":
		outcome.Passed = found && fmt.Sprintf("%v", actual) == a.Value
	case "contains":
		outcome.Passed = found && strings.Contains(fmt.Sprintf("%v", actual), a.Value)
	case "truthy":
		outcome.Passed = found && isTruthy(actual)
	case "exists":
		outcome.Passed = found
	default:
		return outcome, errs.New(errs.CodeAssertFailed, "unknown assertion kind %q", a.Kind)
	}

	if !outcome.Passed {
		outcome.Message = fmt.Sprintf("assertion %s on %q failed: actual=%v expected=%v", a.Kind, a.Path, actual, a.Value)
		return outcome, errs.New(errs.CodeAssertFailed, "%s", outcome.Message).
			WithHints(nil, map[string]any{"path": a.Path, "actual": actual})
	}
	return outcome, nil
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

// dotGetPath walks root by a dot-separated path string (e.g. "data.count").
func dotGetPath(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	return dotGet(root, strings.Split(path, "."))
}

// EvaluateRequire checks every predicate->{path:threshold} pair in a plan's
// Require block against the assembled result map (spec §8 scenario 4).
func EvaluateRequire(require map[string]map[string]float64, result map[string]any) []AssertOutcome {
	var outcomes []AssertOutcome
	for predicate, checks := range require {
		for path, threshold := range checks {
			actual, found := dotGetPath(result, path)
			value, ok := toFloat(actual)
			passed := found && ok
			if passed {
				switch predicate {
				case "gte":
					passed = value >= threshold
				default:
					passed = false
				}
			}
			outcome := AssertOutcome{Kind: predicate, Path: path, Passed: passed}
			if !passed {
				outcome.Message = fmt.Sprintf("require.%s on %q failed: actual=%v threshold=%v", predicate, path, actual, threshold)
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// evaluateTermination checks a repeat-until predicate against the nested
// step's report. maxAttempts is handled by the caller's attempt counter,
// not here.
func evaluateTermination(spec RepeatUntilSpec, reportMap map[string]any, previous *float64) (holds bool, current float64, err error) {
	actual, found := dotGetPath(reportMap, spec.UntilPath)
	if !found {
		return false, 0, errs.New(errs.CodePlanInvalid, "repeat-until path %q not found in step report", spec.UntilPath)
	}
	value, ok := toFloat(actual)
	if !ok {
		return false, 0, errs.New(errs.CodePlanInvalid, "repeat-until path %q is not numeric", spec.UntilPath)
	}

	switch spec.Predicate {
	case "gte":
		return value >= spec.Threshold, value, nil
	case "deltaGte":
		if previous == nil {
			return false, value, nil
		}
		return value-*previous >= spec.Threshold, value, nil
	case "maxAttempts":
		return false, value, nil
	default:
		return false, 0, errs.New(errs.CodePlanInvalid, "unknown repeat-until predicate %q", spec.Predicate)
	}
}
