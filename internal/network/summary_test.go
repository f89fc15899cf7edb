package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeBucketsStatuses(t *testing.T) {
	records := []Record{
		{URL: "https://a.test/1", Status: 200, DurationMs: 10, OK: true},
		{URL: "https://a.test/2", Status: 404, DurationMs: 20, OK: false},
		{URL: "https://b.test/3", Status: 500, DurationMs: 30, OK: false},
	}
	s := Summarize(records, false)
	assert.Equal(t, 1, s.StatusBuckets["2xx"])
	assert.Equal(t, 1, s.StatusBuckets["4xx"])
	assert.Equal(t, 1, s.StatusBuckets["5xx"])
	assert.Equal(t, 3, s.TotalRequests)
}

func TestSummarizeComputesLatencyStats(t *testing.T) {
	records := []Record{
		{DurationMs: 10}, {DurationMs: 20}, {DurationMs: 30}, {DurationMs: 40},
	}
	s := Summarize(records, false)
	assert.Equal(t, int64(10), s.Latency.Min)
	assert.Equal(t, int64(40), s.Latency.Max)
	assert.Equal(t, int64(25), s.Latency.Avg)
}

func TestSummarizeTopSlowestOrdering(t *testing.T) {
	records := []Record{
		{ID: "slow", DurationMs: 100},
		{ID: "fast", DurationMs: 1},
		{ID: "mid", DurationMs: 50},
	}
	s := Summarize(records, false)
	assert.Equal(t, "slow", s.SlowestTop5[0].ID)
}

func TestSummarizeTopHostsCountsOccurrences(t *testing.T) {
	records := []Record{
		{URL: "https://a.test/1"},
		{URL: "https://a.test/2"},
		{URL: "https://b.test/1"},
	}
	s := Summarize(records, false)
	assert.Equal(t, "a.test", s.Insights.TopHosts[0].Host)
	assert.Equal(t, 2, s.Insights.TopHosts[0].Count)
}

func TestHostOfParsesScheme(t *testing.T) {
	assert.Equal(t, "example.com", hostOf("https://example.com/path?x=1"))
	assert.Equal(t, "", hostOf(""))
}
