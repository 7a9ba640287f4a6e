package services

import (
	"context"
	"encoding/json"
	"log"

	"song-battle-system/models"

	"github.com/redis/go-redis/v9"
)

const quickMatchChannel = "quick-match"

// Broadcast event names on the quick-match channel.
const (
	eventQuickChallenge = "quick-challenge"
	eventQuickResponse  = "quick-challenge-response"
)

// QuickChallenge is the low-latency pairing shortcut: an already-connected
// peer may accept it immediately, bypassing the queue.
type QuickChallenge struct {
	From      string       `json:"from"`
	BetAmount int64        `json:"bet_amount"`
	Track     models.Track `json:"track"`
}

type challengeResponse struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

type broadcastEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// BroadcastService is the pub/sub side channel for quick matches. It is
// best-effort by contract: a lost message degrades to queue matching,
// never to failure, so publish errors are logged and swallowed.
type BroadcastService struct {
	rdb      *redis.Client
	sessions *SessionManager
}

func NewBroadcastService(rdb *redis.Client, sessions *SessionManager) *BroadcastService {
	return &BroadcastService{rdb: rdb, sessions: sessions}
}

func (b *BroadcastService) publish(ctx context.Context, event string, payload interface{}) {
	if b.rdb == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal broadcast payload: %v", err)
		return
	}
	msg, _ := json.Marshal(broadcastEnvelope{Event: event, Payload: raw})

	if err := b.rdb.Publish(ctx, quickMatchChannel, msg).Err(); err != nil {
		log.Printf("⚠️  Broadcast publish failed (degrading to queue matching): %v", err)
	}
}

// PublishChallenge announces a quick-match challenge to connected peers.
func (b *BroadcastService) PublishChallenge(ctx context.Context, ch QuickChallenge) {
	b.publish(ctx, eventQuickChallenge, ch)
}

// PublishAccepted acknowledges a challenge back to its originator.
func (b *BroadcastService) PublishAccepted(ctx context.Context, from, to string) {
	b.publish(ctx, eventQuickResponse, challengeResponse{Type: "accepted", From: from, To: to})
}

// Listen consumes the quick-match channel and dispatches challenges to
// local sessions until ctx is cancelled.
func (b *BroadcastService) Listen(ctx context.Context) {
	if b.rdb == nil {
		log.Println("⚠️  Redis not configured, quick-match broadcast disabled (queue-only matching)")
		return
	}

	sub := b.rdb.Subscribe(ctx, quickMatchChannel)
	defer sub.Close()

	log.Println("Quick-match broadcast listener running")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			b.dispatch(msg.Payload)
		}
	}
}

func (b *BroadcastService) dispatch(raw string) {
	var env broadcastEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Printf("Ignoring malformed broadcast message: %v", err)
		return
	}

	switch env.Event {
	case eventQuickChallenge:
		var ch QuickChallenge
		if err := json.Unmarshal(env.Payload, &ch); err != nil || ch.From == "" || ch.Track.ID == "" {
			return
		}
		b.sessions.Broadcast(ch)
	case eventQuickResponse:
		var resp challengeResponse
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			return
		}
		if resp.Type == "accepted" {
			log.Printf("Quick challenge from %s accepted by %s", resp.To, resp.From)
		}
	}
}
