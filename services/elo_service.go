package services

import (
	"log"
	"math"
	"sync"
	"time"

	"song-battle-system/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// eloGateMaxDiff is the fairness gate: two tracks may battle only
	// when their score difference is strictly below this.
	eloGateMaxDiff    = 300
	eloBreakerCooloff = 24 * time.Hour
	eloRefreshEvery   = 2 * time.Hour
	eloChartBatchSize = 24
)

// circuitBreaker self-disables a dependency for a cool-down after a
// structural failure (e.g. missing table), with explicit open/expiry state.
type circuitBreaker struct {
	mu        sync.Mutex
	openUntil time.Time
}

func (b *circuitBreaker) Open(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = time.Now().Add(d)
}

func (b *circuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() {
		return false
	}
	if time.Now().After(b.openUntil) {
		b.openUntil = time.Time{}
		return false
	}
	return true
}

// EloService answers whether two tracks are close enough in popularity to
// battle, backed by lazily-created track_elo rows. When the backing table
// is structurally unavailable it degrades to the default score for 24h
// rather than failing matchmaking.
type EloService struct {
	DB      *gorm.DB
	Oracle  *OracleClient
	breaker circuitBreaker
	sched   gocron.Scheduler
}

func NewEloService(db *gorm.DB, oracle *OracleClient) *EloService {
	return &EloService{DB: db, Oracle: oracle}
}

// Score returns the stored score for a track, lazily persisting the
// default on first lookup. Never returns an error: every failure path
// degrades to the default score.
func (s *EloService) Score(trackID string) int64 {
	if s.breaker.IsOpen() {
		return models.DefaultEloScore
	}

	var record models.TrackEloRecord
	err := s.DB.First(&record, "track_id = ?", trackID).Error
	if err == nil {
		return record.EloScore
	}

	if isStructuralStoreError(err) {
		log.Printf("⚠️  track_elo table unavailable, disabling ELO gating for 24h: %v", err)
		s.breaker.Open(eloBreakerCooloff)
		return models.DefaultEloScore
	}

	if err != gorm.ErrRecordNotFound {
		log.Printf("DB Error reading track elo %s: %v", trackID, err)
		return models.DefaultEloScore
	}

	// First sighting: persist the default so refreshes can supersede it.
	seed := models.TrackEloRecord{TrackID: trackID, EloScore: models.DefaultEloScore}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		if isStructuralStoreError(err) {
			s.breaker.Open(eloBreakerCooloff)
		} else {
			log.Printf("DB Error seeding track elo %s: %v", trackID, err)
		}
	}

	return models.DefaultEloScore
}

// Compatible applies the fairness gate to a pair of tracks. The gate is
// symmetric and a track is always compatible with itself.
func (s *EloService) Compatible(trackA, trackB string) (bool, int64) {
	a := s.Score(trackA)
	b := s.Score(trackB)
	return eloGateAllowed(a, b)
}

// chartScore smooths an oracle popularity rank into the score scale.
// A missing rank falls back to the default score's smoothing.
func chartScore(rank int64) int64 {
	if rank <= 0 {
		rank = models.DefaultEloScore
	}
	return int64(math.Max(1, math.Round(float64(rank)/1000)))
}

func eloGateAllowed(a, b int64) (bool, int64) {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eloGateMaxDiff, diff
}

// RefreshChartScores pulls currently-popular tracks from the oracle and
// upserts smoothed scores. Honors the breaker cool-down.
func (s *EloService) RefreshChartScores() {
	if s.breaker.IsOpen() {
		return
	}

	tracks, err := s.Oracle.ChartTracks()
	if err != nil {
		log.Printf("⚠️  ELO refresh skipped, oracle unavailable: %v", err)
		return
	}

	if len(tracks) > eloChartBatchSize {
		tracks = tracks[:eloChartBatchSize]
	}

	for _, track := range tracks {
		record := models.TrackEloRecord{TrackID: track.ID.String(), EloScore: chartScore(track.Rank)}
		err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "track_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"elo_score", "last_updated"}),
		}).Create(&record).Error
		if err != nil {
			if isStructuralStoreError(err) {
				log.Printf("⚠️  track_elo table missing during refresh, disabling for 24h")
				s.breaker.Open(eloBreakerCooloff)
				return
			}
			log.Printf("DB Error upserting track elo %s: %v", record.TrackID, err)
		}
	}
}

// StartRefreshScheduler runs RefreshChartScores immediately and then
// every two hours.
func (s *EloService) StartRefreshScheduler() {
	sched, _ := gocron.NewScheduler()
	s.sched = sched
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(eloRefreshEvery),
		gocron.NewTask(s.RefreshChartScores),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
}
