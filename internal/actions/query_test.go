package actions

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValidateExactlyOneOf(t *testing.T) {
	require.Error(t, Query{}.Validate())
	require.NoError(t, Query{Text: "Sign in"}.Validate())
	require.NoError(t, Query{Selector: ".btn"}.Validate())
	require.NoError(t, Query{Contains: "sign"}.Validate())
	require.Error(t, Query{Text: "x", Selector: ".btn"}.Validate())
}

func TestQueryCSSDefaultsToBroadScan(t *testing.T) {
	assert.Equal(t, "body *", Query{}.CSS())
	assert.Equal(t, ".btn", Query{Selector: ".btn"}.CSS())
}

func TestSelectorHintBuildsTagIDClasses(t *testing.T) {
	n := &cdp.Node{
		NodeName:   "BUTTON",
		Attributes: []string{"id", "submit", "class", "btn primary"},
	}
	assert.Equal(t, "button#submit.btn.primary", selectorHint(n))
}

func TestSelectorHintHandlesNoAttributes(t *testing.T) {
	n := &cdp.Node{NodeName: "DIV"}
	assert.Equal(t, "div", selectorHint(n))
}

func TestHrefPartsSplitsHostAndPath(t *testing.T) {
	n := &cdp.Node{Attributes: []string{"href", "https://example.com/docs/intro"}}
	host, path := hrefParts(n)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/docs/intro", path)
}

func TestHrefPartsHandlesRelativeHref(t *testing.T) {
	n := &cdp.Node{Attributes: []string{"href", "/about"}}
	host, path := hrefParts(n)
	assert.Equal(t, "", host)
	assert.Equal(t, "/about", path)
}
