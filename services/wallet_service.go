package services

import (
	"errors"
	"log"

	"song-battle-system/models"
	"song-battle-system/workers"

	"github.com/gofiber/fiber/v2"
)

// WalletService exposes cashout of platform currency through the
// settlement backend. Quotes are a pass-through; the balance debit
// happens here before the backend is asked to move anything.
type WalletService struct {
	Settlement *SettlementService
	Payouts    *workers.ChainPayoutClient
}

func NewWalletService(settlement *SettlementService, payouts *workers.ChainPayoutClient) *WalletService {
	return &WalletService{Settlement: settlement, Payouts: payouts}
}

type cashoutRequest struct {
	Amount  int64  `json:"amount"`
	Network string `json:"network"`
}

// QuoteCashout asks the settlement backend what a cashout would return.
func (s *WalletService) QuoteCashout(c *fiber.Ctx) error {
	amount := int64(c.QueryInt("amount"))
	network := c.Query("network")
	if amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}
	if s.Payouts == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cashout is not configured"})
	}

	quote, err := s.Payouts.Quote(c.Context(), amount, network)
	if err != nil {
		log.Printf("Settlement backend quote failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "settlement backend unavailable"})
	}
	return c.JSON(quote)
}

// Cashout debits the caller's balance and hands the transfer to the
// settlement backend. The debit is re-credited if the backend refuses.
func (s *WalletService) Cashout(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req cashoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}
	if s.Payouts == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cashout is not configured"})
	}

	if err := s.Settlement.Apply(userID, -req.Amount, models.TxTypeCashout, nil); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("Failed to debit cashout for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to debit balance"})
	}

	receipt, err := s.Payouts.RequestCashout(c.Context(), userID, req.Amount, req.Network)
	if err != nil {
		log.Printf("Settlement backend cashout failed for %s: %v", userID, err)
		if refundErr := s.Settlement.Apply(userID, req.Amount, models.TxTypeRefund, nil); refundErr != nil {
			log.Printf("Failed to re-credit %s after cashout failure: %v", userID, refundErr)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "settlement backend unavailable"})
	}

	log.Printf("💸 Cashout of %d accepted for user %s (tx %s)", req.Amount, userID, receipt.TxHash)
	return c.JSON(fiber.Map{"status": "accepted", "receipt": receipt})
}
