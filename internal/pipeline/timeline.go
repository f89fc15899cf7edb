package pipeline

import "time"

// Event is one timeline entry (spec §4.6): step.start/end, step.assert-
// failed, run.start/end, and repeat-until's nested attempts.
type Event struct {
	Kind      string `json:"kind"`
	AtMs      int64  `json:"atMs"`
	StepIndex int    `json:"stepIndex,omitempty"`
	StepID    string `json:"stepId,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Timeline accumulates Events with millisecond offsets from its own start,
// grounded on internal/capture/collector.go's accumulate-then-drain shape
// minus its channel (a pipeline run is single-threaded, so no channel is
// needed).
type Timeline struct {
	epoch  time.Time
	events []Event
}

// NewTimeline starts a timeline anchored at now.
func NewTimeline() *Timeline {
	return &Timeline{epoch: time.Now()}
}

func (t *Timeline) emit(kind string, stepIndex int, stepID, alias string, attempt int, message string) {
	t.events = append(t.events, Event{
		Kind:      kind,
		AtMs:      time.Since(t.epoch).Milliseconds(),
		StepIndex: stepIndex,
		StepID:    stepID,
		Alias:     alias,
		Attempt:   attempt,
		Message:   message,
	})
}

func (t *Timeline) RunStart()           { t.emit("run.start", 0, "", "", 0, "") }
func (t *Timeline) RunEnd()             { t.emit("run.end", 0, "", "", 0, "") }
func (t *Timeline) StepStart(i int, id, alias string) {
	t.emit("step.start", i, id, alias, 0, "")
}
func (t *Timeline) StepEnd(i int, id, alias string) { t.emit("step.end", i, id, alias, 0, "") }
func (t *Timeline) StepAssertFailed(i int, id, alias, message string) {
	t.emit("step.assert-failed", i, id, alias, 0, message)
}
func (t *Timeline) RepeatAttemptStart(i int, id string, attempt int) {
	t.emit("repeat-until.attempt-start", i, id, "", attempt, "")
}
func (t *Timeline) RepeatAttemptEnd(i int, id string, attempt int) {
	t.emit("repeat-until.attempt-end", i, id, "", attempt, "")
}

// Events returns the accumulated, ordered event list.
func (t *Timeline) Events() []Event { return t.events }
