package actions

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimingBuilderAccumulatesPhases(t *testing.T) {
	tb := newTimingBuilder()

	err := measure(&tb.resolveSession, func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	err = measure(&tb.connectCDP, func() error {
		time.Sleep(5 * time.Millisecond)
		return errors.New("boom")
	})
	require.Error(t, err)

	timing := tb.build()
	assert.GreaterOrEqual(t, timing.ResolveSessionMs, int64(0))
	assert.GreaterOrEqual(t, timing.ConnectCDPMs, int64(0))
	assert.GreaterOrEqual(t, timing.TotalMs, timing.ResolveSessionMs)
}

func TestMeasureReturnsUnderlyingError(t *testing.T) {
	var d time.Duration
	sentinel := errors.New("boom")
	err := measure(&d, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Greater(t, d, time.Duration(-1))
}
