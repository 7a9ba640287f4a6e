package services

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"song-battle-system/models"
)

// defaultProjectionFloor/Span bound the substitute projection used when
// the oracle cannot be reached, wide enough that neither side is an
// obvious favorite.
const (
	defaultProjectionFloor = 200000
	defaultProjectionSpan  = 800000
)

// BattleResult is the simulator's report to the match lifecycle.
type BattleResult struct {
	Plays1  float64
	Plays2  float64
	Health1 int
	Health2 int
}

// BattleService runs the timed contest: one tick per interval for the
// configured duration, noisy play accumulation per side, share-based
// standing. There is no early knockout; the contest always runs full
// duration.
type BattleService struct {
	Oracle       *OracleClient
	Duration     int           // ticks
	TickInterval time.Duration // 1s in production, shortened in tests
	Rand         func() float64
}

func NewBattleService(oracle *OracleClient, duration int) *BattleService {
	return &BattleService{
		Oracle:       oracle,
		Duration:     duration,
		TickInterval: time.Second,
		Rand:         rand.Float64,
	}
}

// projections fetches the per-side popularity projections; when the
// oracle is unavailable the contest proceeds on a wide random default.
func (b *BattleService) projections(m *models.Match) (float64, float64) {
	p1 := b.Oracle.ProjectedPopularity(m.Player1TrackID)
	p2 := b.Oracle.ProjectedPopularity(m.Player2TrackID)

	if p1 <= 0 {
		p1 = defaultProjectionFloor + int64(b.Rand()*defaultProjectionSpan)
		log.Printf("Oracle projection missing for track %s, using default %d", m.Player1TrackID, p1)
	}
	if p2 <= 0 {
		p2 = defaultProjectionFloor + int64(b.Rand()*defaultProjectionSpan)
		log.Printf("Oracle projection missing for track %s, using default %d", m.Player2TrackID, p2)
	}
	return float64(p1), float64(p2)
}

// playsIncrement is one tick's worth of simulated plays: the projection
// spread over the duration, scaled by noise in [0.7, 1.3) so the long-run
// sum trends toward the projection.
func (b *BattleService) playsIncrement(projection float64) float64 {
	base := projection / float64(b.Duration)
	variance := 0.7 + b.Rand()*0.6
	return base * variance
}

// shareHealth derives the instantaneous standing from accumulated plays.
// It is a share, not a depletable pool: a side can recover.
func shareHealth(plays1, plays2 float64) (int, int) {
	total := plays1 + plays2
	if total <= 0 {
		return 50, 50
	}
	share1 := plays1 / total * 100
	share1 = math.Max(0, math.Min(100, share1))
	h1 := int(math.Round(share1))
	return h1, 100 - h1
}

// Run executes the contest and returns the final standing. It respects
// ctx cancellation by reporting the standing accumulated so far.
func (b *BattleService) Run(ctx context.Context, m *models.Match) BattleResult {
	projection1, projection2 := b.projections(m)

	var plays1, plays2 float64
	ticker := time.NewTicker(b.TickInterval)
	defer ticker.Stop()

	for tick := b.Duration; tick > 0; tick-- {
		select {
		case <-ctx.Done():
			log.Printf("Battle for match %s interrupted at tick %d", m.ID, tick)
			h1, h2 := shareHealth(plays1, plays2)
			return BattleResult{Plays1: plays1, Plays2: plays2, Health1: h1, Health2: h2}
		case <-ticker.C:
			plays1 += b.playsIncrement(projection1)
			plays2 += b.playsIncrement(projection2)
		}
	}

	h1, h2 := shareHealth(plays1, plays2)
	return BattleResult{Plays1: plays1, Plays2: plays2, Health1: h1, Health2: h2}
}
