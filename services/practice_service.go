package services

import (
	"errors"
	"log"
	"math/rand"

	"song-battle-system/models"
	"song-battle-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// How many CPU candidates get a shot at passing the ELO gate before we
// take the last one anyway. Practice must always produce an opponent.
const cpuEloAttempts = 4

// PracticeService is the practice strategy: a CPU opponent, demo-balance
// wagers, and a small real-currency reward when the human wins.
type PracticeService struct {
	Oracle   *OracleClient
	Elo      *EloService
	Matches  *MatchService
	Sessions *SessionManager
	Config   utils.GameConfig
}

func NewPracticeService(oracle *OracleClient, elo *EloService, matches *MatchService,
	sessions *SessionManager, cfg utils.GameConfig) *PracticeService {
	return &PracticeService{Oracle: oracle, Elo: elo, Matches: matches, Sessions: sessions, Config: cfg}
}

type practiceRequest struct {
	Track     models.Track `json:"track"`
	BetAmount int64        `json:"bet_amount"`
}

// StartPractice spins up a match against a CPU-controlled track. Bets
// below the minimum are raised to it rather than rejected; practice is
// meant to be frictionless.
func (s *PracticeService) StartPractice(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req practiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Track.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "track is required"})
	}

	bet := req.BetAmount
	if bet < s.Config.MinBet {
		bet = s.Config.MinBet
	}

	if s.Matches.Settlement.DemoBalance(userID) < bet {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInsufficientDemo.Error()})
	}

	cpuTrack := s.FetchCPUOpponent(req.Track)

	match, err := s.Matches.CreateMatch(models.MatchTypePractice,
		userID, nil,
		req.Track, cpuTrack,
		bet, bet,
		models.MatchStatusReady, nil)
	if err != nil {
		if errors.Is(err, ErrInsufficientDemo) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("Failed to create practice match: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create match"})
	}

	if _, err := s.Matches.StartMatch(match.ID); err != nil {
		log.Printf("Failed to start practice match %s: %v", match.ID, err)
	}

	return c.JSON(fiber.Map{"status": "matched", "match": match, "cpu_track": cpuTrack})
}

// FetchCPUOpponent picks the CPU's track through staged fallbacks:
// a related artist's top track, then the chart, then a keyword search,
// then a synthetic stand-in. Each real candidate gets ELO-gated a few
// times; after that the last candidate wins regardless.
func (s *PracticeService) FetchCPUOpponent(userTrack models.Track) models.Track {
	var lastCandidate *models.Track

	check := func(candidate models.Track, attempt int) *models.Track {
		c := candidate
		lastCandidate = &c
		if attempt >= cpuEloAttempts {
			return &c
		}
		if allowed, _ := s.Elo.Compatible(userTrack.ID, c.ID); allowed {
			return &c
		}
		return nil
	}

	attempt := 0

	for _, candidate := range s.relatedArtistTracks(userTrack) {
		if picked := check(candidate, attempt); picked != nil {
			return *picked
		}
		attempt++
	}

	for _, candidate := range s.chartPicks(userTrack) {
		if picked := check(candidate, attempt); picked != nil {
			return *picked
		}
		attempt++
	}

	for _, candidate := range s.searchPicks(userTrack) {
		if picked := check(candidate, attempt); picked != nil {
			return *picked
		}
		attempt++
	}

	if lastCandidate != nil {
		return *lastCandidate
	}

	return s.syntheticOpponent(userTrack)
}

// relatedArtistTracks walks the user's artist's neighbors and collects
// their top tracks that have a preview and are not the user's own song.
func (s *PracticeService) relatedArtistTracks(userTrack models.Track) []models.Track {
	details, err := s.Oracle.TrackDetails(userTrack.ID)
	if err != nil {
		log.Printf("Oracle error fetching track %s: %v", userTrack.ID, err)
		return nil
	}

	artists, err := s.Oracle.RelatedArtists(details.Artist.ID.String())
	if err != nil {
		log.Printf("Oracle error fetching related artists: %v", err)
		return nil
	}

	var out []models.Track
	for i, artist := range artists {
		if i >= 3 {
			break
		}
		top, err := s.Oracle.ArtistTopTracks(artist.ID.String())
		if err != nil {
			continue
		}
		for _, t := range top {
			candidate := t.ToTrack()
			if candidate.ID == userTrack.ID || candidate.Preview == "" {
				continue
			}
			out = append(out, candidate)
		}
	}
	return out
}

// chartPicks shuffles the current chart, preferring a different artist
// than the user's.
func (s *PracticeService) chartPicks(userTrack models.Track) []models.Track {
	chart, err := s.Oracle.ChartTracks()
	if err != nil {
		log.Printf("Oracle error fetching chart: %v", err)
		return nil
	}

	var preferred, fallback []models.Track
	for _, t := range chart {
		candidate := t.ToTrack()
		if candidate.ID == userTrack.ID || candidate.Preview == "" {
			continue
		}
		if candidate.Artist != userTrack.Artist {
			preferred = append(preferred, candidate)
		} else {
			fallback = append(fallback, candidate)
		}
	}

	rand.Shuffle(len(preferred), func(i, j int) { preferred[i], preferred[j] = preferred[j], preferred[i] })
	return append(preferred, fallback...)
}

func (s *PracticeService) searchPicks(userTrack models.Track) []models.Track {
	results, err := s.Oracle.SearchTracks(userTrack.Artist + " hits")
	if err != nil {
		log.Printf("Oracle error searching for CPU opponent: %v", err)
		return nil
	}

	var out []models.Track
	for _, t := range results {
		candidate := t.ToTrack()
		if candidate.ID == userTrack.ID || candidate.Preview == "" {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// syntheticOpponent is the terminal fallback when the oracle yields
// nothing usable. It reuses the user's preview so the client always has
// audio to play.
func (s *PracticeService) syntheticOpponent(userTrack models.Track) models.Track {
	return models.Track{
		ID:      "cpu_" + uuid.NewString(),
		Name:    "Generated Rival",
		Artist:  "CPU Challenger",
		Image:   userTrack.Image,
		Preview: userTrack.Preview,
	}
}

// GetDemoBalance reports the caller's practice wallet.
func (s *PracticeService) GetDemoBalance(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	return c.JSON(fiber.Map{"demo_balance": s.Matches.Settlement.DemoBalance(userID)})
}
