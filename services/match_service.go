package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"song-battle-system/models"
	"song-battle-system/utils"
	"song-battle-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PracticeRewardAmount is credited to the real balance when the human
// wins a practice match. The demo balance is never credited.
const PracticeRewardAmount = 50

// MatchService owns the match state machine from creation to settlement.
// Transitions are guarded status updates so racing calls become no-ops:
// settlement runs exactly once per match.
type MatchService struct {
	DB         *gorm.DB
	Settlement *SettlementService
	Battle     *BattleService
	Payouts    *workers.ChainPayoutClient
}

func NewMatchService(db *gorm.DB, settlement *SettlementService, battle *BattleService, payouts *workers.ChainPayoutClient) *MatchService {
	return &MatchService{DB: db, Settlement: settlement, Battle: battle, Payouts: payouts}
}

// DecideWinner picks the side with strictly greater final plays. Exactly
// equal plays favor slot 1; with noisy continuous accumulation that case
// is effectively unreachable, but the rule is pinned deterministic.
func DecideWinner(plays1, plays2 float64) int {
	if plays1 >= plays2 {
		return 1
	}
	return 2
}

// CreateMatch persists a match in its start state and debits the wagers.
// Quick/private matches debit the real balance, practice the demo
// balance; tournament entries never come through here.
func (s *MatchService) CreateMatch(matchType string, player1ID string, player2ID *string,
	track1, track2 models.Track, bet1, bet2 int64, status string, roomCode *string) (*models.Match, error) {

	match := &models.Match{
		ID:        uuid.NewString(),
		MatchType: matchType,
		Status:    status,
		RoomCode:  roomCode,

		Player1ID:           player1ID,
		Player1TrackID:      track1.ID,
		Player1TrackName:    track1.Name,
		Player1TrackArtist:  track1.Artist,
		Player1TrackImage:   track1.Image,
		Player1TrackPreview: track1.Preview,
		Player1Bet:          bet1,

		Player2ID:           player2ID,
		Player2TrackID:      track2.ID,
		Player2TrackName:    track2.Name,
		Player2TrackArtist:  track2.Artist,
		Player2TrackImage:   track2.Image,
		Player2TrackPreview: track2.Preview,
		Player2Bet:          bet2,
	}

	if status != models.MatchStatusWaiting {
		match.TotalPot = bet1 + bet2
	}

	// Debit before persisting: an insufficient balance must not leave a
	// half-created match behind.
	switch matchType {
	case models.MatchTypePractice:
		if err := s.Settlement.ApplyDemo(player1ID, -bet1); err != nil {
			return nil, err
		}
	default:
		if err := s.Settlement.Apply(player1ID, -bet1, models.TxTypeBet, &match.ID); err != nil {
			return nil, err
		}
		if player2ID != nil && status == models.MatchStatusReady {
			if err := s.Settlement.Apply(*player2ID, -bet2, models.TxTypeBet, &match.ID); err != nil {
				// Give the initiator their stake back; the pairing failed.
				if refundErr := s.Settlement.Apply(player1ID, bet1, models.TxTypeRefund, &match.ID); refundErr != nil {
					log.Printf("Failed to refund initiator %s after debit failure: %v", player1ID, refundErr)
				}
				return nil, err
			}
		}
	}

	if err := s.DB.Create(match).Error; err != nil {
		log.Printf("DB Error creating match: %v", err)
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	return match, nil
}

// GetMatchByID loads one match.
func (s *MatchService) GetMatchByID(matchID string) (*models.Match, error) {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

// StartMatch moves a ready match to playing and hands off to the contest
// simulator. Idempotent: starting an already-playing match is a no-op.
func (s *MatchService) StartMatch(matchID string) (*models.Match, error) {
	match, err := s.GetMatchByID(matchID)
	if err != nil {
		return nil, err
	}

	switch match.Status {
	case models.MatchStatusPlaying:
		return match, nil
	case models.MatchStatusFinished:
		return match, nil
	case models.MatchStatusWaiting:
		return nil, fmt.Errorf("match %s is still waiting for an opponent", matchID)
	}

	now := time.Now()
	res := s.DB.Model(&models.Match{}).
		Where("id = ? AND status = ?", matchID, models.MatchStatusReady).
		Updates(map[string]interface{}{
			"status":     models.MatchStatusPlaying,
			"started_at": &now,
		})
	if res.Error != nil {
		log.Printf("DB Error starting match %s: %v", matchID, res.Error)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Raced with another start; it already owns the battle.
		return s.GetMatchByID(matchID)
	}

	match.Status = models.MatchStatusPlaying
	match.StartedAt = &now

	go func() {
		result := s.Battle.Run(context.Background(), match)
		if err := s.FinishMatch(match.ID, result); err != nil {
			log.Printf("Failed to finish match %s: %v", match.ID, err)
		}
	}()

	return match, nil
}

// winnerUserID resolves the winning slot to a user. A paid match always
// has both slots; a missing slot 2 reports no winner rather than paying
// slot 1 by accident.
func winnerUserID(m *models.Match, winner int) (string, bool) {
	if winner == 2 {
		if m.Player2ID == nil {
			return "", false
		}
		return *m.Player2ID, true
	}
	return m.Player1ID, true
}

// FinishMatch records the contest outcome and settles the wager exactly
// once. A racing second call loses the guarded status update and no-ops.
// The status flip and the settlement credits commit together: a failed
// credit rolls the flip back, leaving the match retryable.
func (s *MatchService) FinishMatch(matchID string, result BattleResult) error {
	match, err := s.GetMatchByID(matchID)
	if err != nil {
		return err
	}

	winner := DecideWinner(result.Plays1, result.Plays2)
	winnerID, hasWinner := winnerUserID(match, winner)
	payout := s.Settlement.MatchPayout(match.TotalPot)
	now := time.Now()

	settled := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Match{}).
			Where("id = ? AND status = ?", matchID, models.MatchStatusPlaying).
			Updates(map[string]interface{}{
				"status":               models.MatchStatusFinished,
				"winner":               winner,
				"player1_final_plays":  int64(math.Round(result.Plays1)),
				"player2_final_plays":  int64(math.Round(result.Plays2)),
				"player1_final_health": result.Health1,
				"player2_final_health": result.Health2,
				"finished_at":          &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already finished (or never started): settlement must not run twice.
			return nil
		}
		settled = true

		if match.MatchType == models.MatchTypePractice {
			// No fee, no payout. A human win credits a fixed reward to the
			// real balance; the demo balance only ever saw the initial bet.
			if winner == 1 {
				return s.Settlement.ApplyIn(tx, match.Player1ID, PracticeRewardAmount, models.TxTypePracticeReward, &match.ID)
			}
			return nil
		}

		if !hasWinner {
			log.Printf("Paid match %s finished with empty slot 2, skipping payout", match.ID)
			return nil
		}

		if err := s.Settlement.ApplyIn(tx, winnerID, payout.WinnerPayout, models.TxTypeWin, &match.ID); err != nil {
			return err
		}
		if err := addCounter(tx, models.CounterPlatformRevenue, payout.PlatformFee); err != nil {
			return err
		}
		return logFee(tx, match.ID, payout.PlatformFee)
	})
	if err != nil {
		log.Printf("Failed to settle match %s (left playing for retry): %v", match.ID, err)
		return err
	}
	if !settled {
		return nil
	}

	match.Winner = winner

	if match.MatchType == models.MatchTypePractice || !hasWinner {
		return nil
	}

	// Post-settlement hooks are fire-and-forget: neither the on-chain
	// trigger nor the archive is part of the state machine.
	if s.Payouts != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			receipt, err := s.Payouts.RequestPayout(ctx, winnerID, payout.WinnerPayout, match.ID)
			if err != nil {
				log.Printf("On-chain payout trigger failed for match %s: %v", match.ID, err)
				return
			}
			log.Printf("On-chain payout triggered for match %s: tx=%s status=%s", match.ID, receipt.TxHash, receipt.Status)
		}()
	}
	go s.archiveMatch(match.ID)

	return nil
}

// archiveMatch uploads the settled match row to R2 as an audit record.
func (s *MatchService) archiveMatch(matchID string) {
	if !utils.R2Enabled() {
		return
	}

	match, err := s.GetMatchByID(matchID)
	if err != nil {
		log.Printf("Failed to load match %s for archive: %v", matchID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := utils.UploadJSONToR2(ctx, fmt.Sprintf("matches/%s.json", matchID), match)
	if err != nil {
		log.Printf("Failed to archive match %s: %v", matchID, err)
		return
	}
	log.Printf("Archived match %s to %s", matchID, url)
}

// --- Handlers ---

// GetMatch returns one match (polled by waiting clients).
func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	match, err := s.GetMatchByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(match)
}

// StartMatchEndpoint starts (or re-enters) a match.
func (s *MatchService) StartMatchEndpoint(c *fiber.Ctx) error {
	match, err := s.StartMatch(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(match)
}
