package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResolutionKind(t *testing.T) {
	cases := map[string]ResolutionKind{
		"AP":                ResolutionAnsweredPoints,
		"anp":               ResolutionAnsweredNoPoints,
		" DP ":              ResolutionDelegatedPoints,
		"DelegatedNoPoints": ResolutionDelegatedNoPoints,
		"TNP":               ResolutionTimeoutNoPoints,
	}
	for in, want := range cases {
		got, ok := ParseResolutionKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "XP", "0", "points"} {
		_, ok := ParseResolutionKind(in)
		assert.False(t, ok, in)
	}
}

func TestResolutionKindAwardsPoints(t *testing.T) {
	assert.True(t, ResolutionAnsweredPoints.AwardsPoints())
	assert.True(t, ResolutionDelegatedPoints.AwardsPoints())
	assert.False(t, ResolutionAnsweredNoPoints.AwardsPoints())
	assert.False(t, ResolutionDelegatedNoPoints.AwardsPoints())
	assert.False(t, ResolutionTimeoutNoPoints.AwardsPoints())
}

func TestTelemetryEventOwner(t *testing.T) {
	conf := "Sam"
	ev := TelemetryEvent{User: "P01", Confederate: &conf, Action: ActionConfederateMessage}
	assert.Equal(t, "Sam", ev.Owner())

	ev.Action = ActionNextProblem
	assert.Equal(t, "P01", ev.Owner())
}
