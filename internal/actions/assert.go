package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// AssertKind is one of the four predicates the pipeline executor and select
// actions support (spec §4.6).
type AssertKind string

const (
	AssertEquals   AssertKind = "equals"
	AssertContains AssertKind = "contains"
	AssertTruthy   AssertKind = "truthy"
	AssertExists   AssertKind = "exists"
)

// Assertion checks a single JS expression against the page after an action
// runs (spec §4.4, §4.6).
type Assertion struct {
	Kind  AssertKind
	Path  string // JS expression evaluated against the page
	Value string // expected value, for equals/contains
}

// AssertionResult records whether an assertion passed and its message.
type AssertionResult struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// evaluateAssertion runs a.Path in pageCtx and checks it against a.Kind,
// returning E_ASSERT_FAILED (spec §4.6) when the predicate does not hold.
func evaluateAssertion(pageCtx context.Context, a Assertion) (AssertionResult, error) {
	var actual any
	if err := chromedp.Run(pageCtx, chromedp.Evaluate("("+a.Path+")", &actual)); err != nil {
		return AssertionResult{Path: a.Path, Kind: string(a.Kind)}, errs.Wrap(errs.CodeAssertFailed, err, "assertion path %q could not be evaluated", a.Path)
	}

	result := AssertionResult{Path: a.Path, Kind: string(a.Kind)}

	switch a.Kind {
	case AssertEquals:
		result.Passed = fmt.Sprintf("%v", actual) == a.Value
	case AssertContains:
		result.Passed = strings.Contains(fmt.Sprintf("%v", actual), a.Value)
	case AssertTruthy:
		result.Passed = isTruthy(actual)
	case AssertExists:
		result.Passed = actual != nil
	default:
		return result, errs.New(errs.CodeAssertFailed, "unknown assertion kind %q", a.Kind)
	}

	if !result.Passed {
		result.Message = fmt.Sprintf("assertion %s on %q failed: actual=%v expected=%v", a.Kind, a.Path, actual, a.Value)
		return result, errs.New(errs.CodeAssertFailed, "%s", result.Message).WithHints(nil, map[string]any{"path": a.Path, "actual": actual})
	}
	return result, nil
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
