package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"song-battle-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideWinner(t *testing.T) {
	tests := []struct {
		name           string
		plays1, plays2 float64
		want           int
	}{
		{name: "slot one ahead", plays1: 1000, plays2: 999, want: 1},
		{name: "slot two ahead", plays1: 10, plays2: 10.5, want: 2},
		{name: "exact tie favors slot one", plays1: 500, plays2: 500, want: 1},
		{name: "zero plays both", plays1: 0, plays2: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideWinner(tt.plays1, tt.plays2))
		})
	}
}

func TestShareHealth(t *testing.T) {
	tests := []struct {
		name           string
		plays1, plays2 float64
		want1, want2   int
	}{
		{name: "no plays yet", plays1: 0, plays2: 0, want1: 50, want2: 50},
		{name: "even contest", plays1: 1000, plays2: 1000, want1: 50, want2: 50},
		{name: "three to one", plays1: 750, plays2: 250, want1: 75, want2: 25},
		{name: "total domination", plays1: 1000, plays2: 0, want1: 100, want2: 0},
		{name: "shut out", plays1: 0, plays2: 1000, want1: 0, want2: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1, h2 := shareHealth(tt.plays1, tt.plays2)
			assert.Equal(t, tt.want1, h1)
			assert.Equal(t, tt.want2, h2)
			assert.Equal(t, 100, h1+h2, "health shares must sum to 100")
		})
	}
}

func TestPlaysIncrementBounds(t *testing.T) {
	b := &BattleService{Duration: 60}

	// The noise factor spans [0.7, 1.3), so one tick stays within that
	// band around projection/duration.
	base := 600000.0 / 60

	b.Rand = func() float64 { return 0 }
	assert.InDelta(t, base*0.7, b.playsIncrement(600000), 1e-9)

	b.Rand = func() float64 { return 0.5 }
	assert.InDelta(t, base, b.playsIncrement(600000), 1e-9)

	b.Rand = func() float64 { return 0.999999 }
	assert.Less(t, b.playsIncrement(600000), base*1.3)
}

func newOracleStub(t *testing.T, rank int64) *OracleClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": 1, "title": "stub", "rank": %d}`, rank)
	}))
	t.Cleanup(srv.Close)

	client := NewOracleClient()
	client.BaseURL = srv.URL
	return client
}

func TestBattleRunDeterministic(t *testing.T) {
	b := &BattleService{
		Oracle:       newOracleStub(t, 600000),
		Duration:     5,
		TickInterval: time.Millisecond,
		Rand:         func() float64 { return 0.5 },
	}

	m := &models.Match{ID: "m1", Player1TrackID: "1", Player2TrackID: "2"}
	result := b.Run(context.Background(), m)

	// Both sides share the projection and the noise, so the accumulation
	// is identical: duration ticks of projection/duration each.
	require.InDelta(t, 600000, result.Plays1, 1e-6)
	require.InDelta(t, 600000, result.Plays2, 1e-6)
	assert.Equal(t, 50, result.Health1)
	assert.Equal(t, 50, result.Health2)
	assert.Equal(t, 1, DecideWinner(result.Plays1, result.Plays2))
}

func TestBattleRunCancellation(t *testing.T) {
	b := &BattleService{
		Oracle:       newOracleStub(t, 600000),
		Duration:     1000,
		TickInterval: time.Millisecond,
		Rand:         func() float64 { return 0.5 },
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	m := &models.Match{ID: "m2", Player1TrackID: "1", Player2TrackID: "2"}
	done := make(chan BattleResult, 1)
	go func() { done <- b.Run(ctx, m) }()

	select {
	case result := <-done:
		// The contest stopped early with a consistent partial standing.
		assert.Equal(t, 100, result.Health1+result.Health2)
		assert.Less(t, result.Plays1, 600000.0)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled battle did not return")
	}
}
