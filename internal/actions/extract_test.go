package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeRecordsByURLAndTitleCaseInsensitive(t *testing.T) {
	records := []ExtractRecord{
		{URL: "https://a.test/1", Title: "Hello"},
		{URL: "HTTPS://A.TEST/1", Title: "hello"},
		{URL: "https://a.test/2", Title: "Hello"},
	}
	out := dedupeRecords(records)
	assert.Len(t, out, 2)
}

func TestApplySchemaMapsFields(t *testing.T) {
	records := []ExtractRecord{{URL: "u", Title: "t", Text: "body"}}
	out := applySchema(records, map[string]string{"link": "url", "heading": "title"})
	assert.Equal(t, "u", out[0].Fields["link"])
	assert.Equal(t, "t", out[0].Fields["heading"])
}

func TestDedupeByFieldDropsRepeats(t *testing.T) {
	records := []ExtractRecord{
		{URL: "a", Fields: map[string]any{"slug": "x"}},
		{URL: "b", Fields: map[string]any{"slug": "x"}},
		{URL: "c", Fields: map[string]any{"slug": "y"}},
	}
	out := dedupeByField(records, "slug")
	assert.Len(t, out, 2)
}

func TestDedupeByFieldKeepsRecordsMissingField(t *testing.T) {
	records := []ExtractRecord{
		{URL: "a"},
		{URL: "b"},
	}
	out := dedupeByField(records, "slug")
	assert.Len(t, out, 2)
}
