package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFieldsSubstitutesWholeStringTemplate(t *testing.T) {
	scope := Scope{SessionID: "s-1", TargetID: "t-1", Last: map[string]any{"data": map[string]any{"count": 3.0}}}
	fields := map[string]json.RawMessage{
		"limit": json.RawMessage(`"${last.data.count}"`),
	}
	out, err := ResolveFields(fields, scope)
	require.NoError(t, err)
	assert.Equal(t, 3.0, out["limit"])
}

func TestResolveFieldsSubstitutesAliasedStepsScope(t *testing.T) {
	scope := Scope{Steps: map[string]map[string]any{"links": {"data": map[string]any{"count": 5.0}}}}
	fields := map[string]json.RawMessage{"value": json.RawMessage(`"${steps.links.data.count}"`)}
	out, err := ResolveFields(fields, scope)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out["value"])
}

func TestResolveFieldsLeavesPlainValuesUnchanged(t *testing.T) {
	scope := Scope{}
	fields := map[string]json.RawMessage{"selector": json.RawMessage(`"a.link"`), "limit": json.RawMessage(`7`)}
	out, err := ResolveFields(fields, scope)
	require.NoError(t, err)
	assert.Equal(t, "a.link", out["selector"])
	assert.Equal(t, 7.0, out["limit"])
}

func TestResolveFieldsEmbedsTemplateInLargerString(t *testing.T) {
	scope := Scope{SessionID: "s-1"}
	fields := map[string]json.RawMessage{"note": json.RawMessage(`"session is ${sessionId}"`)}
	out, err := ResolveFields(fields, scope)
	require.NoError(t, err)
	assert.Equal(t, "session is s-1", out["note"])
}

func TestResolveFieldsMissingPathYieldsNil(t *testing.T) {
	scope := Scope{}
	fields := map[string]json.RawMessage{"value": json.RawMessage(`"${last.nothing}"`)}
	out, err := ResolveFields(fields, scope)
	require.NoError(t, err)
	assert.Nil(t, out["value"])
}
