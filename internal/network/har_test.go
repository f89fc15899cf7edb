package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHARBuildsOnePageForDocumentRecords(t *testing.T) {
	records := []Record{
		{ID: "1", URL: "https://example.com/", Method: "GET", Navigation: true, StartMs: 0},
		{ID: "2", URL: "https://example.com/app.js", Method: "GET", StartMs: 5},
	}
	h := ExportHAR(records, "1.0", "0.1.0")
	require.Len(t, h.Log.Pages, 1)
	assert.Len(t, h.Log.Entries, 2)
}

func TestExportHAREntriesSortedByID(t *testing.T) {
	records := []Record{
		{ID: "b", URL: "https://example.com/b"},
		{ID: "a", URL: "https://example.com/a"},
	}
	h := ExportHAR(records, "", "")
	require.Len(t, h.Log.Entries, 2)
	assert.Equal(t, "https://example.com/a", h.Log.Entries[0].Request.URL)
}

func TestOrUnknownDefaultsEmptyString(t *testing.T) {
	assert.Equal(t, "unknown", orUnknown(""))
	assert.Equal(t, "1.2.3", orUnknown("1.2.3"))
}
