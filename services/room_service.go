package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"song-battle-system/models"
	"song-battle-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room codes avoid ambiguous glyphs (no I, O, 0, 1).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const roomCodeLength = 6

const roomWaitPollInterval = 2 * time.Second
const roomWaitPollAttempts = 150 // five minutes of patience

// RoomService is the private-room strategy: the creator mints a code,
// shares it out of band, and a joiner fills the second slot.
type RoomService struct {
	DB       *gorm.DB
	Elo      *EloService
	Sessions *SessionManager
	Matches  *MatchService
	Config   utils.GameConfig
}

func NewRoomService(db *gorm.DB, elo *EloService, sessions *SessionManager,
	matches *MatchService, cfg utils.GameConfig) *RoomService {
	return &RoomService{DB: db, Elo: elo, Sessions: sessions, Matches: matches, Config: cfg}
}

func generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

type createRoomRequest struct {
	Track     models.Track `json:"track"`
	BetAmount int64        `json:"bet_amount"`
}

type joinRoomRequest struct {
	RoomCode  string       `json:"room_code"`
	Track     models.Track `json:"track"`
	BetAmount int64        `json:"bet_amount"`
}

// CreateRoom mints a room code and parks a waiting match behind it. The
// creator's stake is debited immediately; it comes back if the room is
// abandoned.
func (s *RoomService) CreateRoom(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Track.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "track is required"})
	}
	if req.BetAmount < s.Config.MinBet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooLow.Error(), "min_bet": s.Config.MinBet})
	}
	if req.BetAmount > s.Config.MaxBet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooHigh.Error(), "max_bet": s.Config.MaxBet})
	}

	// Retry on the unlikely code collision; the unique index is the referee.
	var match *models.Match
	var room *models.PrivateRoom
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		code := generateRoomCode()

		m, err := s.Matches.CreateMatch(models.MatchTypePrivate,
			userID, nil,
			req.Track, models.Track{},
			req.BetAmount, 0,
			models.MatchStatusWaiting, &code)
		if err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			log.Printf("Failed to create room match: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create room"})
		}

		r := &models.PrivateRoom{
			ID:        uuid.NewString(),
			RoomCode:  code,
			CreatorID: userID,
			MatchID:   m.ID,
			MinBet:    req.BetAmount,
			Status:    models.RoomStatusOpen,
		}
		if err := s.DB.Create(r).Error; err != nil {
			lastErr = err
			// Unwind the parked match and its debit, then retry with a new code.
			s.DB.Delete(&models.Match{}, "id = ?", m.ID)
			if refundErr := s.Matches.Settlement.Apply(userID, req.BetAmount, models.TxTypeRefund, &m.ID); refundErr != nil {
				log.Printf("Failed to refund creator %s after room collision: %v", userID, refundErr)
			}
			continue
		}

		match, room = m, r
		break
	}
	if room == nil {
		log.Printf("DB Error creating private room: %v", lastErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create room"})
	}

	s.startRoomWait(s.Sessions.Get(userID), match.ID)

	return c.JSON(fiber.Map{
		"status":    "waiting",
		"room_code": room.RoomCode,
		"match_id":  match.ID,
		"min_bet":   room.MinBet,
	})
}

// startRoomWait polls for the joiner on behalf of the creator so the
// status endpoint can report "matched" without the client watching the
// match itself.
func (s *RoomService) startRoomWait(session *Session, matchID string) {
	ctx, cancel := context.WithCancel(context.Background())
	session.BeginSearch(cancel)

	go func() {
		defer cancel()

		ticker := time.NewTicker(roomWaitPollInterval)
		defer ticker.Stop()

		for attempt := 0; attempt < roomWaitPollAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			var match models.Match
			if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
				log.Printf("DB Error polling room match %s: %v", matchID, err)
				continue
			}

			if match.Status != models.MatchStatusWaiting {
				session.CompletePairing(matchID)
				return
			}
		}

		session.CancelSearch()
	}()
}

// JoinRoom fills the second slot of an open room. The slot assignment is
// a guarded update so two joiners racing on the same code cannot both
// get in.
func (s *RoomService) JoinRoom(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req joinRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Track.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "track is required"})
	}

	var room models.PrivateRoom
	if err := s.DB.First(&room, "room_code = ?", req.RoomCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrRoomNotFound.Error()})
		}
		log.Printf("DB Error loading room %s: %v", req.RoomCode, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if room.Status != models.RoomStatusOpen {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ErrRoomAlreadyFull.Error()})
	}
	if room.CreatorID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot join your own room"})
	}
	if req.BetAmount < room.MinBet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooLow.Error(), "min_bet": room.MinBet})
	}
	if req.BetAmount > s.Config.MaxBet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrBetTooHigh.Error(), "max_bet": s.Config.MaxBet})
	}

	match, err := s.Matches.GetMatchByID(room.MatchID)
	if err != nil {
		log.Printf("Room %s points at missing match %s: %v", room.RoomCode, room.MatchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "room is broken"})
	}

	allowed, diff := s.Elo.Compatible(req.Track.ID, match.Player1TrackID)
	if !allowed {
		gateErr := &EloGateError{Diff: diff}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    gateErr.Error(),
			"elo_diff": diff,
		})
	}

	// Debit the joiner before taking the slot; refund if the slot is gone.
	if err := s.Matches.Settlement.Apply(userID, -req.BetAmount, models.TxTypeBet, &match.ID); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("Failed to debit joiner %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to place bet"})
	}

	res := s.DB.Model(&models.Match{}).
		Where("id = ? AND status = ?", match.ID, models.MatchStatusWaiting).
		Updates(map[string]interface{}{
			"status":                models.MatchStatusReady,
			"player2_id":            userID,
			"player2_track_id":      req.Track.ID,
			"player2_track_name":    req.Track.Name,
			"player2_track_artist":  req.Track.Artist,
			"player2_track_image":   req.Track.Image,
			"player2_track_preview": req.Track.Preview,
			"player2_bet":           req.BetAmount,
			"total_pot":             match.Player1Bet + req.BetAmount,
		})
	if res.Error != nil {
		log.Printf("DB Error filling room slot: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if res.RowsAffected == 0 {
		if refundErr := s.Matches.Settlement.Apply(userID, req.BetAmount, models.TxTypeRefund, &match.ID); refundErr != nil {
			log.Printf("Failed to refund joiner %s after lost race: %v", userID, refundErr)
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ErrRoomAlreadyFull.Error()})
	}

	if err := s.DB.Model(&models.PrivateRoom{}).
		Where("room_code = ?", room.RoomCode).
		Update("status", models.RoomStatusFull).Error; err != nil {
		log.Printf("DB Error marking room %s full: %v", room.RoomCode, err)
	}

	started, err := s.Matches.StartMatch(match.ID)
	if err != nil {
		log.Printf("Failed to start room match %s: %v", match.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start match"})
	}

	return c.JSON(fiber.Map{"status": "matched", "match": started})
}

// LeaveRoom abandons an unfilled room and refunds the creator's stake.
func (s *RoomService) LeaveRoom(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	code := c.Params("code")

	var room models.PrivateRoom
	if err := s.DB.First(&room, "room_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrRoomNotFound.Error()})
		}
		log.Printf("DB Error loading room %s: %v", code, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if room.CreatorID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the creator can close the room"})
	}
	if room.Status != models.RoomStatusOpen {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "room already has an opponent"})
	}

	// Delete the parked match only while still waiting; a joiner may have
	// slipped in between the status read and now.
	res := s.DB.Delete(&models.Match{}, "id = ? AND status = ?", room.MatchID, models.MatchStatusWaiting)
	if res.Error != nil {
		log.Printf("DB Error deleting room match %s: %v", room.MatchID, res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "room already has an opponent"})
	}

	if err := s.DB.Delete(&models.PrivateRoom{}, "room_code = ?", room.RoomCode).Error; err != nil {
		log.Printf("DB Error deleting room %s: %v", room.RoomCode, err)
	}

	var match models.Match
	refundAmount := room.MinBet
	if err := s.DB.Unscoped().First(&match, "id = ?", room.MatchID).Error; err == nil {
		refundAmount = match.Player1Bet
	}
	if err := s.Matches.Settlement.Apply(userID, refundAmount, models.TxTypeRefund, &room.MatchID); err != nil {
		log.Printf("Failed to refund creator %s for room %s: %v", userID, room.RoomCode, err)
	}

	s.Sessions.Get(userID).CancelSearch()

	return c.JSON(fiber.Map{"status": "closed", "refunded": refundAmount})
}

// GetRoom reports a room's state so the creator's client can show the
// lobby.
func (s *RoomService) GetRoom(c *fiber.Ctx) error {
	code := c.Params("code")

	var room models.PrivateRoom
	if err := s.DB.First(&room, "room_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrRoomNotFound.Error()})
		}
		log.Printf("DB Error loading room %s: %v", code, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(room)
}
