package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactHeadersAlwaysHidesSensitiveNames(t *testing.T) {
	r, err := NewRedactor(nil)
	require.NoError(t, err)

	out := r.RedactHeaders(map[string][]string{
		"Authorization": {"Bearer abc123"},
		"X-Request-Id":  {"req-1"},
	})

	assert.Equal(t, []string{"[REDACTED]"}, out["Authorization"])
	assert.Equal(t, []string{"req-1"}, out["X-Request-Id"])
}

func TestRedactHeadersAppliesCallerPatterns(t *testing.T) {
	r, err := NewRedactor([]string{`^secret-.*`})
	require.NoError(t, err)

	out := r.RedactHeaders(map[string][]string{
		"X-Custom": {"secret-value"},
	})
	assert.Equal(t, []string{redactedPlaceholder}, out["X-Custom"])
}

func TestNewRedactorRejectsTooManyPatterns(t *testing.T) {
	patterns := make([]string, maxRedactionPatterns+1)
	for i := range patterns {
		patterns[i] = "a"
	}
	_, err := NewRedactor(patterns)
	assert.Error(t, err)
}

func TestRedactPostDataWrapsBinaryAsBase64(t *testing.T) {
	r, err := NewRedactor(nil)
	require.NoError(t, err)

	out := r.RedactPostData(string([]byte{0x00, 0x01, 0x02}), 1000)
	assert.Contains(t, out, "base64:")
}

func TestRedactPostDataTruncatesToMaxChars(t *testing.T) {
	r, err := NewRedactor(nil)
	require.NoError(t, err)

	out := r.RedactPostData("0123456789", 4)
	assert.Equal(t, "0123", out)
}
