package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfwright/surfwright/internal/errs"
)

func TestCommonFlagsRequestCarriesFieldsThrough(t *testing.T) {
	f := commonFlags{SessionID: "s-default", TargetID: "t-1", TimeoutMs: 5000}
	req := f.request()
	assert.Equal(t, "s-default", req.SessionID)
	assert.Equal(t, "t-1", req.TargetID)
	assert.Equal(t, int64(5000), req.TimeoutMs)
	assert.True(t, req.AllowNewSession)
}

func TestDurationFromMsUsesFallbackWhenUnset(t *testing.T) {
	assert.Equal(t, defaultManagedUnreachableGrace, durationFromMs(0, defaultManagedUnreachableGrace))
	assert.Equal(t, durationFromMs(250, 0).Milliseconds(), int64(250))
}

func TestEmitSuccessEnvelope(t *testing.T) {
	var buf bytes.Buffer
	err := emit(&buf, false, map[string]string{"url": "https://example.com"}, nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.Contains(t, decoded, "data")
	assert.NotContains(t, decoded, "code")
}

func TestEmitFailureEnvelopeCarriesErrorFields(t *testing.T) {
	var buf bytes.Buffer
	emitErr := errs.New(errs.CodeSessionNotFound, "session %q not found", "s-missing")
	err := emit(&buf, false, nil, emitErr)
	require.Error(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	assert.Equal(t, string(errs.CodeSessionNotFound), decoded["code"])
	assert.Equal(t, false, decoded["retryable"])
}

func TestEmitWrapsNonSurfwrightErrors(t *testing.T) {
	var buf bytes.Buffer
	err := emit(&buf, false, nil, assert.AnError)
	require.Error(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, string(errs.CodeInternal), decoded["code"])
}
