package services

import (
	"sync"
	"testing"

	"song-battle-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionChallengeOfferAndTake(t *testing.T) {
	s := newSession("alice")

	assert.Nil(t, s.TakePendingChallenge(), "fresh session has no challenge")

	s.OfferChallenge(QuickChallenge{From: "bob", BetAmount: 200, Track: models.Track{ID: "t1"}})
	ch := s.TakePendingChallenge()
	require.NotNil(t, ch)
	assert.Equal(t, "bob", ch.From)

	assert.Nil(t, s.TakePendingChallenge(), "take clears the challenge")
}

func TestSessionIgnoresOwnChallenge(t *testing.T) {
	s := newSession("alice")
	s.OfferChallenge(QuickChallenge{From: "alice", BetAmount: 200})
	assert.Nil(t, s.TakePendingChallenge())
}

func TestSessionPairingSingleAssignment(t *testing.T) {
	s := newSession("alice")
	s.BeginSearch(func() {})

	assert.True(t, s.CompletePairing("match-1"), "first producer wins")
	assert.False(t, s.CompletePairing("match-2"), "second producer is a no-op")

	state, matchID := s.SearchStatus()
	assert.Equal(t, SearchStateMatched, state)
	assert.Equal(t, "match-1", matchID)
}

func TestSessionPairingAfterCancel(t *testing.T) {
	s := newSession("alice")

	cancelled := false
	s.BeginSearch(func() { cancelled = true })
	s.CancelSearch()

	assert.True(t, cancelled, "cancel must stop the poller")
	assert.False(t, s.CompletePairing("match-1"), "pairing a cancelled search is a no-op")

	state, _ := s.SearchStatus()
	assert.Equal(t, SearchStateCancelled, state)
}

func TestSessionCancelWhenIdle(t *testing.T) {
	s := newSession("alice")
	s.CancelSearch()

	state, _ := s.SearchStatus()
	assert.Equal(t, SearchStateIdle, state)
}

func TestSessionPairingConcurrent(t *testing.T) {
	s := newSession("alice")
	s.BeginSearch(func() {})

	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if s.CompletePairing("match") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one producer may complete the pairing")
}

func TestSessionManagerBroadcast(t *testing.T) {
	m := NewSessionManager()
	alice := m.Get("alice")
	bob := m.Get("bob")

	assert.Same(t, alice, m.Get("alice"), "sessions are stable per user")

	m.Broadcast(QuickChallenge{From: "alice", BetAmount: 300})

	assert.Nil(t, alice.TakePendingChallenge(), "originator never sees their own challenge")
	ch := bob.TakePendingChallenge()
	require.NotNil(t, ch)
	assert.Equal(t, "alice", ch.From)
}
