// Package pipeline implements the Pipeline Executor (spec §4.6): a
// declarative plan of typed steps dispatched onto the Action Set, with
// template resolution from prior results, per-step assertions, a timeline,
// and `--record` replay artifacts.
//
// Grounded on the teacher's Options Complete/Validate/Run sequencing
// (itself a three-step pipeline) and on internal/operation/worker.go's Run
// function as the model for a multi-stage job with typed transitions.
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/surfwright/surfwright/internal/errs"
)

// SupportedSteps lists every step id the executor can dispatch, the
// contract surface's `doctor` response echoes this verbatim.
var SupportedSteps = []string{
	"open", "list", "snapshot", "find", "click", "click-read", "fill",
	"upload", "select-option", "keypress", "read", "eval", "extract", "wait",
	"count", "scroll-plan", "scroll-sample", "scroll-watch", "observe",
	"screenshot", "emulate", "repeat-until",
}

var supportedStepSet = func() map[string]bool {
	m := make(map[string]bool, len(SupportedSteps))
	for _, s := range SupportedSteps {
		m[s] = true
	}
	return m
}()

// Step is one plan entry. Fields holds every id-specific field as raw JSON
// values (spec §4.6): Action Set Request structs carry no JSON tags, so
// dispatch maps from this generic bag into each typed Request explicitly
// (dispatch.go), rather than unmarshaling directly into a Request struct.
type Step struct {
	ID        string                     `json:"id"`
	As        string                     `json:"as,omitempty"`
	TimeoutMs int64                      `json:"timeoutMs,omitempty"`
	TargetID  string                     `json:"targetId,omitempty"`
	Assert    *StepAssert                `json:"assert,omitempty"`
	Fields    map[string]json.RawMessage `json:"-"`

	// RepeatUntil is populated only when ID == "repeat-until".
	RepeatUntil *RepeatUntilSpec `json:"repeatUntil,omitempty"`
}

// StepAssert is a step's post-action predicate (spec §4.6).
type StepAssert struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Value string `json:"value,omitempty"`
}

// UnmarshalJSON splits the known envelope fields from the id-specific
// remainder, which is kept as raw JSON for dispatch.go to interpret.
func (s *Step) UnmarshalJSON(data []byte) error {
	var envelope struct {
		ID          string                     `json:"id"`
		As          string                     `json:"as,omitempty"`
		TimeoutMs   int64                      `json:"timeoutMs,omitempty"`
		TargetID    string                     `json:"targetId,omitempty"`
		Assert      *StepAssert                `json:"assert,omitempty"`
		RepeatUntil *RepeatUntilSpec           `json:"repeatUntil,omitempty"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{"id", "as", "timeoutMs", "targetId", "assert", "repeatUntil"} {
		delete(all, known)
	}

	s.ID = envelope.ID
	s.As = envelope.As
	s.TimeoutMs = envelope.TimeoutMs
	s.TargetID = envelope.TargetID
	s.Assert = envelope.Assert
	s.RepeatUntil = envelope.RepeatUntil
	s.Fields = all
	return nil
}

// RepeatUntilSpec configures the `repeat-until` construct (spec §9 Open
// Question, decision recorded in DESIGN.md): re-run Step until the
// predicate over UntilPath (evaluated against the nested step's report)
// holds, or MaxAttempts is reached.
type RepeatUntilSpec struct {
	Step       Step   `json:"step"`
	UntilPath  string `json:"untilPath"`
	Predicate  string `json:"predicate"` // gte, deltaGte, maxAttempts
	Threshold  float64 `json:"threshold,omitempty"`
	MaxAttempts int    `json:"maxAttempts,omitempty"`
}

// Plan is the ordered sequence of Step objects a `run` invocation executes
// (spec §4.6).
type Plan struct {
	Steps  []Step                       `json:"steps"`
	Result map[string]string            `json:"result,omitempty"`
	Require map[string]map[string]float64 `json:"require,omitempty"`
}

const (
	defaultMaxRepeatAttempts = 10
	hardMaxRepeatAttempts    = 100
)

// ParsePlan decodes raw JSON into a Plan.
func ParsePlan(raw []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errs.Wrap(errs.CodePlanInvalid, err, "plan is not valid JSON")
	}
	return &p, nil
}

// Source names which of the four acquisition channels supplied a plan
// (spec §4.6: exactly one of plan-path/plan-json/stdin/replay-path).
type Source string

const (
	SourcePlanPath    Source = "plan-path"
	SourcePlanJSON    Source = "plan-json"
	SourceStdin       Source = "stdin"
	SourceReplayPath  Source = "replay-path"
)

// AcquireOptions names the caller-supplied plan origin. Exactly one
// non-empty field (or UseStdin) is expected.
type AcquireOptions struct {
	PlanPath   string
	PlanJSON   string
	UseStdin   bool
	Stdin      io.Reader
	ReplayPath string

	ReadFile func(path string) ([]byte, error)
}

// Acquire resolves exactly one plan source into a parsed Plan, per spec
// §4.6.
func Acquire(opts AcquireOptions) (*Plan, Source, error) {
	set := 0
	if opts.PlanPath != "" {
		set++
	}
	if opts.PlanJSON != "" {
		set++
	}
	if opts.UseStdin {
		set++
	}
	if opts.ReplayPath != "" {
		set++
	}
	if set != 1 {
		return nil, "", errs.New(errs.CodePlanInvalid, "exactly one of --plan-path, --plan-json, stdin, or --replay-path is required")
	}

	readFile := opts.ReadFile
	if readFile == nil {
		return nil, "", errs.New(errs.CodePlanInvalid, "no file reader configured")
	}

	switch {
	case opts.PlanPath != "":
		raw, err := readFile(opts.PlanPath)
		if err != nil {
			return nil, "", errs.Wrap(errs.CodePlanInvalid, err, "failed to read plan file %q", opts.PlanPath)
		}
		plan, err := ParsePlan(raw)
		return plan, SourcePlanPath, err
	case opts.PlanJSON != "":
		plan, err := ParsePlan([]byte(opts.PlanJSON))
		return plan, SourcePlanJSON, err
	case opts.UseStdin:
		raw, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return nil, "", errs.Wrap(errs.CodePlanInvalid, err, "failed to read plan from stdin")
		}
		plan, err := ParsePlan(raw)
		return plan, SourceStdin, err
	default:
		raw, err := readFile(opts.ReplayPath)
		if err != nil {
			return nil, "", errs.Wrap(errs.CodePlanInvalid, err, "failed to read replay artifact %q", opts.ReplayPath)
		}
		var artifact RecordArtifact
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return nil, "", errs.Wrap(errs.CodePlanInvalid, err, "replay artifact is not valid JSON")
		}
		return &artifact.Plan, SourceReplayPath, nil
	}
}

// LintIssue is one problem found while linting a plan, surfaced by `doctor`
// mode (spec §4.6).
type LintIssue struct {
	StepIndex int    `json:"stepIndex"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

// Lint validates plan shape without executing it: unknown step ids, missing
// required fields per id, and duplicate aliases are all flagged.
func Lint(plan *Plan) []LintIssue {
	var issues []LintIssue
	seenAlias := map[string]bool{}

	for i, step := range plan.Steps {
		if step.ID == "" {
			issues = append(issues, LintIssue{StepIndex: i, Field: "id", Message: "step id is required"})
			continue
		}
		if !supportedStepSet[step.ID] {
			issues = append(issues, LintIssue{StepIndex: i, Field: "id", Message: fmt.Sprintf("unsupported step id %q", step.ID)})
			continue
		}
		if step.As != "" {
			if seenAlias[step.As] {
				issues = append(issues, LintIssue{StepIndex: i, Field: "as", Message: fmt.Sprintf("alias %q reused", step.As)})
			}
			seenAlias[step.As] = true
		}
		if issue := lintFields(i, step); issue != nil {
			issues = append(issues, *issue)
		}
		if step.ID == "repeat-until" {
			if step.RepeatUntil == nil {
				issues = append(issues, LintIssue{StepIndex: i, Field: "repeatUntil", Message: "repeat-until requires a repeatUntil block"})
			} else {
				if step.RepeatUntil.UntilPath == "" {
					issues = append(issues, LintIssue{StepIndex: i, Field: "repeatUntil.untilPath", Message: "untilPath is required"})
				}
				if step.RepeatUntil.MaxAttempts > hardMaxRepeatAttempts {
					issues = append(issues, LintIssue{StepIndex: i, Field: "repeatUntil.maxAttempts", Message: fmt.Sprintf("maxAttempts exceeds hard cap %d", hardMaxRepeatAttempts)})
				}
			}
		}
	}
	return issues
}

// lintFields checks the minimal required-field contract per step id (spec
// §4.6: "required/optional fields are validated per id, e.g. url for
// open").
func lintFields(index int, step Step) *LintIssue {
	required := map[string][]string{
		"open":          {"url"},
		"fill":          {"value"},
		"eval":          {},
		"upload":        {"filePaths"},
		"select-option": {"value"},
		"keypress":      {"keys"},
	}
	for _, field := range required[step.ID] {
		if _, ok := step.Fields[field]; !ok {
			return &LintIssue{StepIndex: index, Field: field, Message: fmt.Sprintf("%q requires field %q", step.ID, field)}
		}
	}
	return nil
}

// DoctorResult is the `doctor` mode response (spec §4.6).
type DoctorResult struct {
	Mode           string      `json:"mode"`
	Source         Source      `json:"source"`
	StepCount      int         `json:"stepCount"`
	Valid          bool        `json:"valid"`
	SupportedSteps []string    `json:"supportedSteps"`
	Issues         []LintIssue `json:"issues"`
}

// Doctor runs plan acquisition and lint without executing any step (spec
// §4.6's `doctor` mode).
func Doctor(opts AcquireOptions) (*DoctorResult, error) {
	plan, source, err := Acquire(opts)
	if err != nil {
		return nil, err
	}
	issues := Lint(plan)
	return &DoctorResult{
		Mode:           "doctor",
		Source:         source,
		StepCount:      len(plan.Steps),
		Valid:          len(issues) == 0,
		SupportedSteps: SupportedSteps,
		Issues:         issues,
	}, nil
}
