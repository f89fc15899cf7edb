package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDefaultsAPIIncludesPostData(t *testing.T) {
	d := ResolveDefaults(ProfileAPI)
	assert.True(t, d.IncludePostData)
	assert.Contains(t, d.Filter.ResourceTypes, "xhr")
}

func TestResolveDefaultsUnknownFallsBackToCustom(t *testing.T) {
	d := ResolveDefaults(Profile("bogus"))
	assert.Equal(t, ResolveDefaults(ProfileCustom), d)
}

func TestClampEnforcesHardCeilings(t *testing.T) {
	d := Defaults{MaxRequests: 100000, MaxWebSockets: 100000, MaxWSMessages: 100000}.Clamp()
	assert.Equal(t, hardMaxRequests, d.MaxRequests)
	assert.Equal(t, hardMaxWebSockets, d.MaxWebSockets)
	assert.Equal(t, hardMaxWSMessages, d.MaxWSMessages)
}

func TestClampLeavesZeroMaxRequestsAtDefault(t *testing.T) {
	d := Defaults{}.Clamp()
	assert.Equal(t, hardMaxRequests, d.MaxRequests)
}

func TestCaptureDurationDefaultsToTenSeconds(t *testing.T) {
	d := Defaults{}
	assert.Equal(t, float64(10), d.CaptureDuration().Seconds())
}
