package utils

import (
	"log"
	"os"
	"strconv"
)

// GameConfig is the engine's tunable surface. Values come from the
// environment with the platform defaults below.
type GameConfig struct {
	MinBet                int64
	MaxBet                int64
	BattleDuration        int     // ticks, one per second
	PlatformFeeRate       float64 // clamped to [0,1] at use sites
	JackpotRate           float64
	PlatformRevenueTarget int64
}

// LoadGameConfig reads the config surface from the environment.
func LoadGameConfig() GameConfig {
	cfg := GameConfig{
		MinBet:                envInt64("MIN_BET", 100),
		MaxBet:                envInt64("MAX_BET", 10000),
		BattleDuration:        int(envInt64("BATTLE_DURATION", 60)),
		PlatformFeeRate:       envFloat("PLATFORM_FEE_RATE", 0.30),
		JackpotRate:           envFloat("JACKPOT_RATE", 0.10),
		PlatformRevenueTarget: envInt64("PLATFORM_REVENUE_TARGET", 100000),
	}

	if cfg.BattleDuration <= 0 {
		log.Printf("⚠️  BATTLE_DURATION must be positive, falling back to 60")
		cfg.BattleDuration = 60
	}

	return cfg
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %g", key, raw, fallback)
		return fallback
	}
	return f
}
