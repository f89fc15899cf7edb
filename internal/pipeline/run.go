package pipeline

import (
	"context"

	"github.com/surfwright/surfwright/internal/actions"
	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
)

// RunOptions configures one `run` invocation (spec §4.6, §6.1).
type RunOptions struct {
	Acquire     AcquireOptions
	SessionID   string
	TargetID    string
	StateDir    string
	Record      bool
	RecordPath  string
	RecordLabel string
}

// StepOutcome is one executed step's result, accumulated on RunResult.
type StepOutcome struct {
	Index    int            `json:"index"`
	ID       string         `json:"id"`
	As       string         `json:"as,omitempty"`
	Report   *actions.Report `json:"report,omitempty"`
	Assert   *AssertOutcome `json:"assert,omitempty"`
	Attempts int            `json:"attempts,omitempty"`
}

// RunResult is the top-level pipeline report (spec §4.6).
type RunResult struct {
	Ok      bool           `json:"ok"`
	Steps   []StepOutcome  `json:"steps"`
	Result  map[string]any `json:"result,omitempty"`
	Require []AssertOutcome `json:"require,omitempty"`
	Timeline []Event       `json:"timeline"`
}

// Run executes plan end to end: dispatch, per-step assert, timeline,
// repeat-until, and the plan-level result/require projections (spec §4.6).
func Run(ctx context.Context, runner *actions.Runner, st *state.Store, opts RunOptions) (*RunResult, error) {
	plan, source, err := Acquire(opts.Acquire)
	if err != nil {
		return nil, err
	}
	if issues := Lint(plan); len(issues) > 0 {
		return nil, errs.New(errs.CodePlanInvalid, "plan failed lint: %s", issues[0].Message)
	}

	tl := NewTimeline()
	tl.RunStart()

	scope := Scope{SessionID: opts.SessionID, TargetID: opts.TargetID, Steps: map[string]map[string]any{}}
	base := actions.Request{SessionID: opts.SessionID, TargetID: opts.TargetID, AllowNewSession: true}

	result := &RunResult{Ok: true}

	for i, step := range plan.Steps {
		outcome, newScope, err := runStep(ctx, runner, base, i, step, scope, tl)
		if err != nil {
			tl.RunEnd()
			result.Timeline = tl.Events()
			return result, err
		}
		scope = newScope
		if outcome.Report != nil {
			base.SessionID = outcome.Report.SessionID
			if outcome.Report.TargetID != "" {
				base.TargetID = outcome.Report.TargetID
			}
		}
		result.Steps = append(result.Steps, *outcome)
	}

	if len(plan.Result) > 0 {
		result.Result = map[string]any{}
		for key, path := range plan.Result {
			val, _ := lookupPath(scope, path)
			result.Result[key] = val
		}
	}
	if len(plan.Require) > 0 {
		result.Require = EvaluateRequire(plan.Require, result.Result)
		for _, r := range result.Require {
			if !r.Passed {
				result.Ok = false
			}
		}
	}

	tl.RunEnd()
	result.Timeline = tl.Events()

	if opts.Record {
		if _, err := WriteRecord(st, opts.StateDir, opts.RecordPath, opts.RecordLabel, base.SessionID, *plan, source, result); err != nil {
			return result, err
		}
	}

	if !result.Ok {
		return result, errs.New(errs.CodePlanStepFailed, "plan completed but one or more require predicates failed")
	}
	return result, nil
}

// runStep dispatches a single top-level plan step (including the
// repeat-until construct), evaluates its assertion, and returns the
// updated scope for subsequent steps.
func runStep(ctx context.Context, runner *actions.Runner, base actions.Request, index int, step Step, scope Scope, tl *Timeline) (*StepOutcome, Scope, error) {
	stepReq := base
	if step.TargetID != "" {
		stepReq.TargetID = step.TargetID
	}

	if step.ID == "repeat-until" {
		if step.RepeatUntil == nil {
			return nil, scope, errs.New(errs.CodePlanInvalid, "repeat-until step %d missing repeatUntil block", index)
		}
		report, attempts, err := runRepeatUntil(ctx, runner, stepReq, index, *step.RepeatUntil, scope, tl)
		if err != nil {
			return nil, scope, err
		}
		outcome := &StepOutcome{Index: index, ID: step.ID, As: step.As, Report: report, Attempts: attempts}
		scope = advanceScope(scope, step.As, report)
		return outcome, scope, nil
	}

	fields, err := ResolveFields(step.Fields, scope)
	if err != nil {
		return nil, scope, err
	}

	tl.StepStart(index, step.ID, step.As)
	report, err := Dispatch(ctx, runner, stepReq, step.ID, fields)
	if err != nil {
		return nil, scope, err
	}
	tl.StepEnd(index, step.ID, step.As)

	outcome := &StepOutcome{Index: index, ID: step.ID, As: step.As, Report: report}

	if step.Assert != nil {
		reportMap := ToMap(report)
		assertOutcome, err := EvaluateStepAssert(step.Assert, reportMap)
		outcome.Assert = assertOutcome
		if err != nil {
			tl.StepAssertFailed(index, step.ID, step.As, assertOutcome.Message)
			return outcome, scope, err
		}
	}

	scope = advanceScope(scope, step.As, report)
	return outcome, scope, nil
}

func advanceScope(scope Scope, alias string, report *actions.Report) Scope {
	reportMap := ToMap(report)
	scope.Last = reportMap
	if report != nil {
		scope.SessionID = report.SessionID
		if report.TargetID != "" {
			scope.TargetID = report.TargetID
		}
	}
	if alias != "" {
		if scope.Steps == nil {
			scope.Steps = map[string]map[string]any{}
		}
		scope.Steps[alias] = reportMap
	}
	return scope
}
