// Package actions implements the Action Set (spec §4.4): snapshot, find,
// click, fill, wait, read, eval, extract, screenshot, and the smaller
// pointer/keyboard/observation actions, all sharing one prologue/body/report
// skeleton.
//
// Grounded on internal/capture.Capture as the canonical "allocate context →
// listen for events → act → collect → assemble" shape (spec design note
// §9), generalized into one call per action kind instead of one monolithic
// capture.
package actions

import "time"

// Timing is the five-field breakdown every action report carries (spec
// §4.4).
type Timing struct {
	TotalMs          int64 `json:"total"`
	ResolveSessionMs int64 `json:"resolveSession"`
	ConnectCDPMs     int64 `json:"connectCdp"`
	ActionMs         int64 `json:"action"`
	PersistStateMs   int64 `json:"persistState"`
}

// Report is the envelope every action returns: the shared handles and
// timing breakdown, plus an action-specific Data payload (spec §4.4, §6.1).
type Report struct {
	Ok        bool    `json:"ok"`
	SessionID string  `json:"sessionId"`
	TargetID  string  `json:"targetId,omitempty"`
	TimingMs  Timing  `json:"timingMs"`
	Data      any     `json:"data,omitempty"`
}

// timingBuilder accumulates the five phases as the prologue/body/epilogue
// of a single action run.
type timingBuilder struct {
	start           time.Time
	resolveSession  time.Duration
	connectCDP      time.Duration
	action          time.Duration
	persistState    time.Duration
}

func newTimingBuilder() *timingBuilder {
	return &timingBuilder{start: time.Now()}
}

func (t *timingBuilder) build() Timing {
	return Timing{
		TotalMs:          time.Since(t.start).Milliseconds(),
		ResolveSessionMs: t.resolveSession.Milliseconds(),
		ConnectCDPMs:     t.connectCDP.Milliseconds(),
		ActionMs:         t.action.Milliseconds(),
		PersistStateMs:   t.persistState.Milliseconds(),
	}
}

// measure runs fn and adds its duration into *into.
func measure(into *time.Duration, fn func() error) error {
	start := time.Now()
	err := fn()
	*into += time.Since(start)
	return err
}

// timeNow is the one place action bodies read the clock, so a future test
// harness has a single seam to fake it from.
func timeNow() time.Time { return time.Now().UTC() }
