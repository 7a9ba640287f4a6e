package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastNilRedisIsNoop(t *testing.T) {
	b := NewBroadcastService(nil, NewSessionManager())

	// Without Redis the side channel degrades silently; nothing may panic.
	b.PublishChallenge(context.Background(), QuickChallenge{From: "alice", BetAmount: 100})
	b.PublishAccepted(context.Background(), "bob", "alice")
	b.Listen(context.Background())
}

func TestDispatchChallenge(t *testing.T) {
	sessions := NewSessionManager()
	bob := sessions.Get("bob")
	b := NewBroadcastService(nil, sessions)

	b.dispatch(`{"event": "quick-challenge", "payload": {"from": "alice", "bet_amount": 250, "track": {"id": "t1", "name": "Song"}}}`)

	ch := bob.TakePendingChallenge()
	require.NotNil(t, ch)
	assert.Equal(t, "alice", ch.From)
	assert.Equal(t, int64(250), ch.BetAmount)
	assert.Equal(t, "t1", ch.Track.ID)
}

func TestDispatchIgnoresBadMessages(t *testing.T) {
	sessions := NewSessionManager()
	bob := sessions.Get("bob")
	b := NewBroadcastService(nil, sessions)

	b.dispatch(`not json`)
	b.dispatch(`{"event": "quick-challenge", "payload": {"from": "", "track": {"id": ""}}}`)
	b.dispatch(`{"event": "unknown", "payload": {}}`)

	assert.Nil(t, bob.TakePendingChallenge())
}
