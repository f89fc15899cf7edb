package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"

	"github.com/surfwright/surfwright/internal/pipeline"
)

func TestRegisterVerbFlagsOmitsUnsetFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	collect := registerVerbFlags(flags, []verbFlag{
		{name: "selector", field: "selector", kind: kindString},
		{name: "visible-only", field: "visibleOnly", kind: kindBool},
		{name: "limit", field: "limit", kind: kindInt},
	})

	fields := collect()
	assert.Empty(t, fields)
}

func TestRegisterVerbFlagsCollectsSetValues(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	collect := registerVerbFlags(flags, []verbFlag{
		{name: "selector", field: "selector", kind: kindString},
		{name: "visible-only", field: "visibleOnly", kind: kindBool},
		{name: "limit", field: "limit", kind: kindInt},
		{name: "wait-timeout-ms", field: "waitTimeoutMs", kind: kindMs},
		{name: "device-scale", field: "deviceScale", kind: kindFloat},
		{name: "file-path", field: "filePaths", kind: kindStringSlice},
	})

	require := flags.Parse([]string{
		"--selector=#submit",
		"--visible-only=true",
		"--limit=5",
		"--wait-timeout-ms=1500",
		"--device-scale=2.5",
		"--file-path=a.txt,b.txt",
	})
	assert.NoError(t, require)

	fields := collect()
	assert.Equal(t, "#submit", fields["selector"])
	assert.Equal(t, true, fields["visibleOnly"])
	assert.Equal(t, float64(5), fields["limit"])
	assert.Equal(t, float64(1500), fields["waitTimeoutMs"])
	assert.Equal(t, 2.5, fields["deviceScale"])
	assert.Equal(t, []any{"a.txt", "b.txt"}, fields["filePaths"])
}

func TestRegisterVerbFlagsKeepsNegativeDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	collect := registerVerbFlags(flags, []verbFlag{
		{name: "nth", field: "nth", kind: kindInt, def: "-1"},
	})

	fields := collect()
	assert.Equal(t, float64(-1), fields["nth"])
}

func TestIsZeroField(t *testing.T) {
	assert.True(t, isZeroField(""))
	assert.True(t, isZeroField(false))
	assert.True(t, isZeroField(float64(0)))
	assert.True(t, isZeroField([]any{}))
	assert.False(t, isZeroField("x"))
	assert.False(t, isZeroField(true))
	assert.False(t, isZeroField(float64(-1)))
}

func TestTargetVerbsAllResolveInDispatchTable(t *testing.T) {
	for _, spec := range targetVerbs {
		cmd := newVerbCommand(&SurfwrightOptions{}, spec)
		assert.Equal(t, spec.use, cmd.Use)
		assert.Contains(t, pipeline.SupportedSteps, spec.id)
	}
}
