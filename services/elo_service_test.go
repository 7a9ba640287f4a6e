package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEloGateAllowed(t *testing.T) {
	tests := []struct {
		name        string
		a, b        int64
		wantAllowed bool
		wantDiff    int64
	}{
		{name: "identical scores", a: 1000, b: 1000, wantAllowed: true, wantDiff: 0},
		{name: "just inside gate", a: 1000, b: 1299, wantAllowed: true, wantDiff: 299},
		{name: "exactly at limit blocked", a: 1000, b: 1300, wantAllowed: false, wantDiff: 300},
		{name: "far apart", a: 100, b: 5000, wantAllowed: false, wantDiff: 4900},
		{name: "default vs default", a: 1000, b: 1000, wantAllowed: true, wantDiff: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, diff := eloGateAllowed(tt.a, tt.b)
			assert.Equal(t, tt.wantAllowed, allowed)
			assert.Equal(t, tt.wantDiff, diff)
		})
	}
}

func TestEloGateSymmetric(t *testing.T) {
	pairs := [][2]int64{{1000, 1299}, {1000, 1300}, {1, 5000}, {42, 42}}
	for _, p := range pairs {
		allowedAB, diffAB := eloGateAllowed(p[0], p[1])
		allowedBA, diffBA := eloGateAllowed(p[1], p[0])
		assert.Equal(t, allowedAB, allowedBA)
		assert.Equal(t, diffAB, diffBA)
	}
}

func TestChartScore(t *testing.T) {
	tests := []struct {
		name string
		rank int64
		want int64
	}{
		{name: "typical chart rank", rank: 750000, want: 750},
		{name: "rounds to nearest", rank: 1500, want: 2},
		{name: "tiny rank clamps to one", rank: 3, want: 1},
		{name: "missing rank smooths the default", rank: 0, want: 1},
		{name: "negative rank smooths the default", rank: -5, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chartScore(tt.rank))
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	var b circuitBreaker

	assert.False(t, b.IsOpen(), "fresh breaker must be closed")

	b.Open(50 * time.Millisecond)
	assert.True(t, b.IsOpen(), "breaker must report open inside the window")

	time.Sleep(60 * time.Millisecond)
	assert.False(t, b.IsOpen(), "breaker must close after the window expires")
	assert.False(t, b.IsOpen(), "closed breaker must stay closed")
}
