package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineOrdersEventsWithNonDecreasingOffsets(t *testing.T) {
	tl := NewTimeline()
	tl.RunStart()
	tl.StepStart(0, "open", "home")
	tl.StepEnd(0, "open", "home")
	tl.RunEnd()

	events := tl.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "run.start", events[0].Kind)
	assert.Equal(t, "step.start", events[1].Kind)
	assert.Equal(t, "step.end", events[2].Kind)
	assert.Equal(t, "run.end", events[3].Kind)

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].AtMs, events[i-1].AtMs)
	}
}

func TestTimelineStepAssertFailedCarriesMessage(t *testing.T) {
	tl := NewTimeline()
	tl.StepAssertFailed(2, "find", "nav", "expected truthy value at data.found")

	events := tl.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "step.assert-failed", events[0].Kind)
	assert.Equal(t, 2, events[0].StepIndex)
	assert.Equal(t, "find", events[0].StepID)
	assert.Equal(t, "nav", events[0].Alias)
	assert.Contains(t, events[0].Message, "data.found")
}

func TestTimelineRepeatUntilAttemptsNestUnderStep(t *testing.T) {
	tl := NewTimeline()
	tl.RepeatAttemptStart(0, "read", 1)
	tl.StepStart(0, "read", "")
	tl.StepEnd(0, "read", "")
	tl.RepeatAttemptEnd(0, "read", 1)
	tl.RepeatAttemptStart(0, "read", 2)
	tl.StepStart(0, "read", "")
	tl.StepEnd(0, "read", "")
	tl.RepeatAttemptEnd(0, "read", 2)

	events := tl.Events()
	require.Len(t, events, 8)
	assert.Equal(t, 1, events[0].Attempt)
	assert.Equal(t, "repeat-until.attempt-start", events[0].Kind)
	assert.Equal(t, 2, events[4].Attempt)
	assert.Equal(t, "repeat-until.attempt-start", events[4].Kind)
}
