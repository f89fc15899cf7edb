package pipeline

import (
	"context"

	"github.com/surfwright/surfwright/internal/actions"
	"github.com/surfwright/surfwright/internal/errs"
)

// runRepeatUntil re-runs spec.Step until its predicate over UntilPath
// holds or MaxAttempts is reached (spec §9 Open Question, decision recorded
// in DESIGN.md). Each attempt emits its own nested step.start/end pair
// under a repeat-until.attempt-start/end bracket.
func runRepeatUntil(ctx context.Context, runner *actions.Runner, base actions.Request, index int, spec RepeatUntilSpec, scope Scope, tl *Timeline) (*actions.Report, int, error) {
	maxAttempts := spec.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRepeatAttempts
	}
	if maxAttempts > hardMaxRepeatAttempts {
		maxAttempts = hardMaxRepeatAttempts
	}

	var lastReport *actions.Report
	var previous *float64

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tl.RepeatAttemptStart(index, spec.Step.ID, attempt)
		tl.StepStart(index, spec.Step.ID, spec.Step.As)

		fields, err := ResolveFields(spec.Step.Fields, scope)
		if err != nil {
			return nil, attempt, err
		}
		stepReq := base
		if spec.Step.TargetID != "" {
			stepReq.TargetID = spec.Step.TargetID
		}

		report, err := Dispatch(ctx, runner, stepReq, spec.Step.ID, fields)
		if err != nil {
			return nil, attempt, err
		}
		tl.StepEnd(index, spec.Step.ID, spec.Step.As)
		tl.RepeatAttemptEnd(index, spec.Step.ID, attempt)
		lastReport = report

		if spec.Predicate == "maxAttempts" {
			if attempt >= maxAttempts {
				return lastReport, attempt, nil
			}
			continue
		}

		reportMap := ToMap(report)
		holds, current, err := evaluateTermination(spec, reportMap, previous)
		if err != nil {
			return nil, attempt, err
		}
		previous = &current
		if holds {
			return lastReport, attempt, nil
		}
	}

	return nil, maxAttempts, errs.New(errs.CodePlanStepFailed, "repeat-until exhausted %d attempts without %s on %q holding", maxAttempts, spec.Predicate, spec.UntilPath)
}
