package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.False(t, isTruthy(""))
	assert.False(t, isTruthy(float64(0)))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy("x"))
	assert.True(t, isTruthy(float64(1)))
	assert.True(t, isTruthy(map[string]any{}))
}
