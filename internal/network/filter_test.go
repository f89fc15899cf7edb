package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatchURLContains(t *testing.T) {
	f := Filter{URLContains: "api.example.com"}
	assert.True(t, f.Match(Record{URL: "https://api.example.com/v1/users"}))
	assert.False(t, f.Match(Record{URL: "https://cdn.example.com/app.js"}))
}

func TestFilterMatchMethodCaseInsensitive(t *testing.T) {
	f := Filter{Methods: []string{"get"}}
	assert.True(t, f.Match(Record{Method: "GET"}))
	assert.False(t, f.Match(Record{Method: "POST"}))
}

func TestFilterMatchStatusClass(t *testing.T) {
	f := Filter{StatusClass: "4xx"}
	assert.True(t, f.Match(Record{Status: 404}))
	assert.False(t, f.Match(Record{Status: 200}))
}

func TestFilterMatchFailedOnly(t *testing.T) {
	f := Filter{FailedOnly: true}
	assert.True(t, f.Match(Record{OK: false}))
	assert.False(t, f.Match(Record{OK: true}))
}

func TestFilterEmptyMatchesEverything(t *testing.T) {
	f := Filter{}
	assert.True(t, f.Match(Record{URL: "anything", Method: "PATCH", Status: 599}))
}

func TestStatusClassBuckets(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(301))
	assert.Equal(t, "4xx", statusClass(403))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "other", statusClass(0))
}
