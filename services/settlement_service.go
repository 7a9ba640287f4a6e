package services

import (
	"errors"
	"log"
	"math"

	"song-battle-system/models"
	"song-battle-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementService owns all fee/jackpot/payout math and is the sole
// writer of user balances.
type SettlementService struct {
	DB     *gorm.DB
	Config utils.GameConfig
}

func NewSettlementService(db *gorm.DB, cfg utils.GameConfig) *SettlementService {
	return &SettlementService{DB: db, Config: cfg}
}

// Split divides an amount into platform fee and net. feeRate is clamped
// to [0,1]; fee + net always equals amount. Exact half-valued fees round
// to even (215 at 0.30 is 64.5, fee 64) so the house never wins the tie.
func Split(amount int64, feeRate float64) (fee int64, net int64) {
	if amount <= 0 {
		return 0, 0
	}
	if feeRate < 0 {
		feeRate = 0
	}
	if feeRate > 1 {
		feeRate = 1
	}
	fee = int64(math.RoundToEven(float64(amount) * feeRate))
	net = amount - fee
	if net < 0 {
		net = 0
	}
	return fee, net
}

// MatchPayout is the settlement of one finished paid match.
type MatchPayout struct {
	PlatformFee  int64 `json:"platform_fee"`
	WinnerPayout int64 `json:"winner_payout"`
}

// MatchPayout computes the pot split at the platform rate.
func (s *SettlementService) MatchPayout(pot int64) MatchPayout {
	fee, net := Split(pot, s.Config.PlatformFeeRate)
	return MatchPayout{PlatformFee: fee, WinnerPayout: net}
}

// TournamentEntrySplit is the settlement of one tournament entry. Once
// cumulative revenue crosses 90% of the configured target, a slice of the
// fee diverts to the jackpot instead of revenue; the net portion always
// funds the prize pool.
type TournamentEntrySplit struct {
	PlatformFee         int64 `json:"platform_fee"`
	JackpotContribution int64 `json:"jackpot_contribution"`
	PlatformNet         int64 `json:"platform_net"`
	PrizeContribution   int64 `json:"prize_contribution"`
	Threshold           int64 `json:"threshold"`
}

// TournamentEntry computes the path-dependent entry split against the
// current cumulative revenue.
func (s *SettlementService) TournamentEntry(entryAmount int64) TournamentEntrySplit {
	threshold := int64(math.Round(float64(s.Config.PlatformRevenueTarget) * 0.9))
	jackpotActive := s.PlatformRevenue() >= threshold

	split := tournamentEntrySplit(entryAmount, s.Config.PlatformFeeRate, s.Config.JackpotRate, jackpotActive)
	split.Threshold = threshold
	return split
}

func tournamentEntrySplit(entryAmount int64, feeRate, jackpotRate float64, jackpotActive bool) TournamentEntrySplit {
	fee, net := Split(entryAmount, feeRate)

	var jackpot int64
	if jackpotActive {
		jackpot = int64(math.RoundToEven(float64(fee) * jackpotRate))
	}
	platformNet := fee - jackpot
	if platformNet < 0 {
		platformNet = 0
	}

	return TournamentEntrySplit{
		PlatformFee:         fee,
		JackpotContribution: jackpot,
		PlatformNet:         platformNet,
		PrizeContribution:   net,
	}
}

// Apply mutates one user's balance by a signed amount and appends the
// typed transaction record, all inside a row-locked DB transaction so a
// user settling in two matches at once never loses an update.
func (s *SettlementService) Apply(userID string, amount int64, txType string, matchID *string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.ApplyIn(tx, userID, amount, txType, matchID)
	})
}

// ApplyIn is Apply inside a caller-owned transaction, for settlements
// that must commit or roll back together with a state transition.
func (s *SettlementService) ApplyIn(tx *gorm.DB, userID string, amount int64, txType string, matchID *string) error {
	var row models.UserBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.UserBalance{UserID: userID, Balance: 0}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	next := row.Balance + amount
	if next < 0 {
		return ErrInsufficientBalance
	}

	if err := tx.Model(&models.UserBalance{}).
		Where("user_id = ?", userID).
		Update("balance", next).Error; err != nil {
		return err
	}

	record := models.BalanceTransaction{
		ID:      uuid.NewString(),
		UserID:  userID,
		MatchID: matchID,
		Type:    txType,
		Amount:  amount,
	}
	return tx.Create(&record).Error
}

// ApplyDemo mutates the isolated practice balance. No ledger record: the
// demo balance never touches platform accounting.
func (s *SettlementService) ApplyDemo(userID string, amount int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var row models.DemoBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.DemoBalance{UserID: userID, Balance: 1000}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		next := row.Balance + amount
		if next < 0 {
			return ErrInsufficientDemo
		}

		return tx.Model(&models.DemoBalance{}).
			Where("user_id = ?", userID).
			Update("balance", next).Error
	})
}

// DemoBalance reads the practice balance, seeding the default row lazily.
func (s *SettlementService) DemoBalance(userID string) int64 {
	var row models.DemoBalance
	err := s.DB.First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.DemoBalance{UserID: userID, Balance: 1000}
		if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			log.Printf("DB Error seeding demo balance for %s: %v", userID, err)
		}
		return 1000
	}
	if err != nil {
		log.Printf("DB Error reading demo balance for %s: %v", userID, err)
		return 0
	}
	return row.Balance
}

// Balance reads the real balance (0 for unseen users).
func (s *SettlementService) Balance(userID string) int64 {
	var row models.UserBalance
	err := s.DB.First(&row, "user_id = ?", userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("DB Error reading balance for %s: %v", userID, err)
		}
		return 0
	}
	return row.Balance
}

// LogFee appends the platform-fee ledger record for a paid match.
func (s *SettlementService) LogFee(matchID string, amount int64) {
	if err := logFee(s.DB, matchID, amount); err != nil {
		log.Printf("DB Error logging fee transaction for match %s: %v", matchID, err)
	}
}

func logFee(db *gorm.DB, matchID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	record := models.BalanceTransaction{
		ID:      uuid.NewString(),
		MatchID: &matchID,
		Type:    models.TxTypeFee,
		Amount:  amount,
	}
	return db.Create(&record).Error
}

// AddToCounter bumps a platform accumulator with a single-expression
// update so concurrent settlements never lose counts.
func (s *SettlementService) AddToCounter(name string, amount int64) {
	if err := addCounter(s.DB, name, amount); err != nil {
		log.Printf("DB Error updating counter %s: %v", name, err)
	}
}

func addCounter(db *gorm.DB, name string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("platform_counters.value + ?", amount)}),
	}).Create(&models.PlatformCounter{Name: name, Value: amount}).Error
}

func (s *SettlementService) counter(name string) int64 {
	var row models.PlatformCounter
	err := s.DB.First(&row, "name = ?", name).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("DB Error reading counter %s: %v", name, err)
		}
		return 0
	}
	return row.Value
}

// PlatformRevenue returns cumulative platform revenue.
func (s *SettlementService) PlatformRevenue() int64 {
	return s.counter(models.CounterPlatformRevenue)
}

// JackpotPool returns the accumulated jackpot.
func (s *SettlementService) JackpotPool() int64 {
	return s.counter(models.CounterJackpotPool)
}

// --- Handlers ---

// GetMyBalances returns the caller's real and demo balances.
func (s *SettlementService) GetMyBalances(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	return c.JSON(fiber.Map{
		"user_id":      userID,
		"balance":      s.Balance(userID),
		"demo_balance": s.DemoBalance(userID),
	})
}
