package services

import (
	"context"
	"log"
	"time"

	"song-battle-system/models"
	"song-battle-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// Bet compatibility band: an opponent's bet must be within ±20%.
	betBandLow  = 0.8
	betBandHigh = 1.2

	queueScanLimit = 8

	matchPollInterval = time.Second
	matchPollAttempts = 60
)

// MatchmakingService is the quick-match strategy: a broadcast challenge
// shortcut, a bet-band queue scan gated by ELO, and a bounded 1s poll
// while queued.
type MatchmakingService struct {
	DB         *gorm.DB
	Elo        *EloService
	Broadcast  *BroadcastService
	Sessions   *SessionManager
	Matches    *MatchService
	Settlement *SettlementService
	Config     utils.GameConfig
}

func NewMatchmakingService(db *gorm.DB, elo *EloService, broadcast *BroadcastService,
	sessions *SessionManager, matches *MatchService, settlement *SettlementService,
	cfg utils.GameConfig) *MatchmakingService {
	return &MatchmakingService{
		DB: db, Elo: elo, Broadcast: broadcast, Sessions: sessions,
		Matches: matches, Settlement: settlement, Config: cfg,
	}
}

type quickMatchRequest struct {
	Track     models.Track `json:"track"`
	BetAmount int64        `json:"bet_amount"`
}

func (s *MatchmakingService) validateBet(bet int64) error {
	if bet < s.Config.MinBet {
		return ErrBetTooLow
	}
	if bet > s.Config.MaxBet {
		return ErrBetTooHigh
	}
	return nil
}

// JoinQuickMatch pairs the caller with an opponent. Order of preference:
// accept a pending broadcast challenge, claim a compatible queue entry,
// otherwise enqueue and poll.
func (s *MatchmakingService) JoinQuickMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req quickMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Track.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "track is required"})
	}
	if err := s.validateBet(req.BetAmount); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "min_bet": s.Config.MinBet})
	}
	if s.Settlement.Balance(userID) < req.BetAmount {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInsufficientBalance.Error()})
	}

	session := s.Sessions.Get(userID)

	if state, _ := session.SearchStatus(); state == SearchStateSearching {
		return c.JSON(fiber.Map{"status": "queued"})
	}

	// Broadcast shortcut: a challenge someone already pushed to us.
	if ch := session.TakePendingChallenge(); ch != nil {
		return s.acceptChallenge(c, session, ch, req)
	}

	// Announce ourselves to connected peers before scanning the queue.
	s.Broadcast.PublishChallenge(c.Context(), QuickChallenge{
		From:      userID,
		BetAmount: req.BetAmount,
		Track:     req.Track,
	})

	match, err := s.scanQueue(userID, req)
	if err != nil {
		log.Printf("DB Error scanning matchmaking queue: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if match != nil {
		if _, err := s.Matches.StartMatch(match.ID); err != nil {
			log.Printf("Failed to start match %s: %v", match.ID, err)
		}
		return c.JSON(fiber.Map{"status": "matched", "match": match})
	}

	entry, err := s.enqueue(userID, req)
	if err != nil {
		log.Printf("DB Error enqueueing user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join queue"})
	}

	s.startPolling(session, entry.ID)

	return c.JSON(fiber.Map{"status": "queued", "entry_id": entry.ID})
}

// acceptChallenge creates the match directly, bypassing the queue. The
// acceptor's bet must meet the challenger's.
func (s *MatchmakingService) acceptChallenge(c *fiber.Ctx, session *Session, ch *QuickChallenge, req quickMatchRequest) error {
	if req.BetAmount < ch.BetAmount {
		// Not enough to cover the challenge; keep it pending for a retry.
		session.OfferChallenge(*ch)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bet must at least match the challenge",
			"min_bet": ch.BetAmount,
		})
	}

	match, err := s.Matches.CreateMatch(models.MatchTypeQuick,
		session.UserID, &ch.From,
		req.Track, ch.Track,
		req.BetAmount, ch.BetAmount,
		models.MatchStatusReady, nil)
	if err != nil {
		return s.matchCreateError(c, err)
	}

	s.Broadcast.PublishAccepted(c.Context(), session.UserID, ch.From)

	if _, err := s.Matches.StartMatch(match.ID); err != nil {
		log.Printf("Failed to start match %s: %v", match.ID, err)
	}
	return c.JSON(fiber.Map{"status": "matched", "match": match})
}

// scanQueue looks for the oldest ELO-compatible entry within the bet
// band and claims it. Claiming is a guarded delete so two scanners can
// never pair against the same entry.
func (s *MatchmakingService) scanQueue(userID string, req quickMatchRequest) (*models.Match, error) {
	var candidates []models.MatchmakingQueueEntry
	err := s.DB.
		Where("user_id != ?", userID).
		Where("bet_amount >= ? AND bet_amount <= ?",
			float64(req.BetAmount)*betBandLow, float64(req.BetAmount)*betBandHigh).
		Order("created_at ASC").
		Limit(queueScanLimit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidate := &candidates[i]

		allowed, diff := s.Elo.Compatible(req.Track.ID, candidate.TrackID)
		if !allowed {
			log.Printf("ELO gate blocked pairing with queue entry %s (diff %d)", candidate.ID, diff)
			continue
		}

		res := s.DB.Delete(&models.MatchmakingQueueEntry{}, "id = ?", candidate.ID)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else claimed it first; try the next candidate.
			continue
		}

		match, err := s.Matches.CreateMatch(models.MatchTypeQuick,
			userID, &candidate.UserID,
			req.Track, candidate.QueueTrack(),
			req.BetAmount, candidate.BetAmount,
			models.MatchStatusReady, nil)
		if err != nil {
			// The claim must not consume the opponent's place in line
			// when no match came of it.
			s.restoreQueueEntry(candidate.ID)
			return nil, err
		}
		return match, nil
	}

	return nil, nil
}

// restoreQueueEntry undoes a claim whose match could not be created.
// Claims are soft deletes, so restoring is clearing the deletion mark.
func (s *MatchmakingService) restoreQueueEntry(entryID string) {
	err := s.DB.Unscoped().Model(&models.MatchmakingQueueEntry{}).
		Where("id = ?", entryID).
		Update("deleted_at", nil).Error
	if err != nil {
		log.Printf("DB Error restoring queue entry %s: %v", entryID, err)
	}
}

func (s *MatchmakingService) enqueue(userID string, req quickMatchRequest) (*models.MatchmakingQueueEntry, error) {
	entry := &models.MatchmakingQueueEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		TrackID:      req.Track.ID,
		TrackName:    req.Track.Name,
		TrackArtist:  req.Track.Artist,
		TrackImage:   req.Track.Image,
		TrackPreview: req.Track.Preview,
		BetAmount:    req.BetAmount,
	}
	if err := s.DB.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// startPolling watches for a match created by someone else's scan: one
// check per second, sixty attempts, then the entry is withdrawn and the
// caller sees "cancelled". The session's completion guard makes whichever
// producer pairs first win.
func (s *MatchmakingService) startPolling(session *Session, entryID string) {
	ctx, cancel := context.WithCancel(context.Background())
	session.BeginSearch(cancel)

	go func() {
		defer cancel()

		ticker := time.NewTicker(matchPollInterval)
		defer ticker.Stop()

		for attempt := 0; attempt < matchPollAttempts; attempt++ {
			select {
			case <-ctx.Done():
				s.removeQueueEntry(entryID)
				return
			case <-ticker.C:
			}

			var matches []models.Match
			err := s.DB.
				Where("(player1_id = ? OR player2_id = ?) AND status = ?",
					session.UserID, session.UserID, models.MatchStatusReady).
				Order("created_at DESC").
				Limit(1).
				Find(&matches).Error
			if err != nil {
				log.Printf("DB Error polling for match (user %s): %v", session.UserID, err)
				continue
			}

			if len(matches) > 0 {
				matchID := matches[0].ID
				if session.CompletePairing(matchID) {
					s.removeQueueEntry(entryID)
					if _, err := s.Matches.StartMatch(matchID); err != nil {
						log.Printf("Failed to start polled match %s: %v", matchID, err)
					}
				}
				return
			}
		}

		// Timed out: withdraw and notify through the session state.
		s.removeQueueEntry(entryID)
		session.CancelSearch()
		log.Printf("Matchmaking timed out for user %s, queue entry withdrawn", session.UserID)
	}()
}

func (s *MatchmakingService) removeQueueEntry(entryID string) {
	if err := s.DB.Delete(&models.MatchmakingQueueEntry{}, "id = ?", entryID).Error; err != nil {
		log.Printf("DB Error removing queue entry %s: %v", entryID, err)
	}
}

func (s *MatchmakingService) matchCreateError(c *fiber.Ctx, err error) error {
	if err == ErrInsufficientBalance {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("Failed to create match: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create match"})
}

// --- Handlers ---

// QuickMatchStatus reports the caller's search state.
func (s *MatchmakingService) QuickMatchStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	state, matchID := s.Sessions.Get(userID).SearchStatus()

	resp := fiber.Map{"status": state}
	if matchID != "" {
		resp["match_id"] = matchID
	}
	return c.JSON(resp)
}

// CancelQuickMatch withdraws the caller from matchmaking.
func (s *MatchmakingService) CancelQuickMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	s.Sessions.Get(userID).CancelSearch()

	if err := s.DB.Delete(&models.MatchmakingQueueEntry{}, "user_id = ?", userID).Error; err != nil {
		log.Printf("DB Error clearing queue entries for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{"status": "cancelled"})
}
