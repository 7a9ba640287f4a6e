package services

import (
	"errors"
	"log"

	"song-battle-system/models"
	"song-battle-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TournamentService is the tournament strategy: a shared entry pool
// instead of live pairing. Entries are split fee/prize, and once platform
// revenue nears its target a slice of the fee feeds the jackpot.
type TournamentService struct {
	DB         *gorm.DB
	Settlement *SettlementService
	Config     utils.GameConfig
}

func NewTournamentService(db *gorm.DB, settlement *SettlementService, cfg utils.GameConfig) *TournamentService {
	return &TournamentService{DB: db, Settlement: settlement, Config: cfg}
}

type createTournamentRequest struct {
	Name            string `json:"name"`
	EntryFee        int64  `json:"entry_fee"`
	MaxParticipants int    `json:"max_participants"`
}

// CreateTournament opens a new pool for registration.
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	if req.EntryFee < s.Config.MinBet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooLow.Error(), "min_bet": s.Config.MinBet})
	}
	if req.MaxParticipants < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_participants must be at least 2"})
	}

	pool := &models.TournamentPool{
		ID:              uuid.NewString(),
		Name:            req.Name,
		EntryFee:        req.EntryFee,
		MaxParticipants: req.MaxParticipants,
		Status:          models.TournamentStatusRegistration,
	}
	if err := s.DB.Create(pool).Error; err != nil {
		log.Printf("DB Error creating tournament: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create tournament"})
	}

	log.Printf("🏆 Tournament '%s' open for registration (entry %d, cap %d)", pool.Name, pool.EntryFee, pool.MaxParticipants)
	return c.Status(fiber.StatusCreated).JSON(pool)
}

type joinTournamentRequest struct {
	Track     models.Track `json:"track"`
	BetAmount int64        `json:"bet_amount"`
}

// JoinTournament accepts one entry into a pool. The seat claim is a
// guarded counter increment so a full pool never oversells, and the
// entry debit happens only after the seat is held.
func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	poolID := c.Params("id")

	var req joinTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	var pool models.TournamentPool
	if err := s.DB.First(&pool, "id = ?", poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrPoolNotFound.Error()})
		}
		log.Printf("DB Error loading tournament %s: %v", poolID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if pool.Status != models.TournamentStatusRegistration {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ErrPoolFull.Error()})
	}
	if req.BetAmount < pool.EntryFee {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooLow.Error(), "entry_fee": pool.EntryFee})
	}
	if req.BetAmount > s.Config.MaxBet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooHigh.Error(), "max_bet": s.Config.MaxBet})
	}

	split := s.Settlement.TournamentEntry(req.BetAmount)

	participant := &models.TournamentParticipant{
		ID:           uuid.NewString(),
		TournamentID: pool.ID,
		UserID:       userID,
		TrackID:      req.Track.ID,
		TrackName:    req.Track.Name,
		EntryPaid:    req.BetAmount,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Take a seat only while registration is open and under the cap.
		res := tx.Model(&models.TournamentPool{}).
			Where("id = ? AND status = ? AND current_participants < max_participants",
				pool.ID, models.TournamentStatusRegistration).
			Updates(map[string]interface{}{
				"current_participants": gorm.Expr("current_participants + 1"),
				"prize_pool":           gorm.Expr("prize_pool + ?", split.PrizeContribution),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPoolFull
		}

		if err := tx.Create(participant).Error; err != nil {
			// The store's unique index on (tournament_id, user_id) is the
			// authority on one-entry-per-user, covering concurrent joins too.
			if isDuplicateKeyError(err) {
				return ErrAlreadyEntered
			}
			return err
		}

		// Close registration when this entry hits the cap.
		return tx.Model(&models.TournamentPool{}).
			Where("id = ? AND current_participants >= max_participants", pool.ID).
			Update("status", models.TournamentStatusFull).Error
	})
	if err != nil {
		if errors.Is(err, ErrPoolFull) || errors.Is(err, ErrAlreadyEntered) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB Error joining tournament %s: %v", pool.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join tournament"})
	}

	// Debit after the seat is held; release the seat if the debit fails.
	if err := s.Settlement.Apply(userID, -req.BetAmount, models.TxTypeBet, nil); err != nil {
		s.releaseSeat(pool.ID, participant.ID, split.PrizeContribution)
		if errors.Is(err, ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("Failed to debit tournament entry for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to place entry"})
	}

	s.Settlement.AddToCounter(models.CounterPlatformRevenue, split.PlatformNet)
	if split.JackpotContribution > 0 {
		s.Settlement.AddToCounter(models.CounterJackpotPool, split.JackpotContribution)
		log.Printf("💰 Jackpot grew by %d from tournament entry (pool %s)", split.JackpotContribution, pool.ID)
	}

	return c.JSON(fiber.Map{
		"status":             "entered",
		"participant_id":     participant.ID,
		"prize_contribution": split.PrizeContribution,
		"platform_fee":       split.PlatformFee,
	})
}

func (s *TournamentService) releaseSeat(poolID, participantID string, prizeContribution int64) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.TournamentParticipant{}, "id = ?", participantID).Error; err != nil {
			return err
		}
		return tx.Model(&models.TournamentPool{}).
			Where("id = ?", poolID).
			Updates(map[string]interface{}{
				"current_participants": gorm.Expr("current_participants - 1"),
				"prize_pool":           gorm.Expr("prize_pool - ?", prizeContribution),
				"status":               models.TournamentStatusRegistration,
			}).Error
	})
	if err != nil {
		log.Printf("DB Error releasing tournament seat %s: %v", participantID, err)
	}
}

// ListTournaments returns pools still accepting entries first.
func (s *TournamentService) ListTournaments(c *fiber.Ctx) error {
	var pools []models.TournamentPool
	err := s.DB.
		Order("CASE status WHEN 'registration' THEN 0 WHEN 'full' THEN 1 ELSE 2 END, created_at DESC").
		Find(&pools).Error
	if err != nil {
		log.Printf("DB Error listing tournaments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(pools)
}

// GetTournament returns one pool with its participants.
func (s *TournamentService) GetTournament(c *fiber.Ctx) error {
	var pool models.TournamentPool
	err := s.DB.Preload("Participants").First(&pool, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrPoolNotFound.Error()})
		}
		log.Printf("DB Error loading tournament: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(pool)
}

// GetJackpot reports the current jackpot pool and platform revenue.
func (s *TournamentService) GetJackpot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"jackpot_pool":     s.Settlement.JackpotPool(),
		"platform_revenue": s.Settlement.PlatformRevenue(),
		"revenue_target":   s.Config.PlatformRevenueTarget,
	})
}
