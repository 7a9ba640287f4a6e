package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadGameConfigDefaults(t *testing.T) {
	cfg := LoadGameConfig()

	assert.Equal(t, int64(100), cfg.MinBet)
	assert.Equal(t, int64(10000), cfg.MaxBet)
	assert.Equal(t, 60, cfg.BattleDuration)
	assert.Equal(t, 0.30, cfg.PlatformFeeRate)
	assert.Equal(t, 0.10, cfg.JackpotRate)
	assert.Equal(t, int64(100000), cfg.PlatformRevenueTarget)
}

func TestLoadGameConfigOverrides(t *testing.T) {
	t.Setenv("MIN_BET", "50")
	t.Setenv("MAX_BET", "20000")
	t.Setenv("BATTLE_DURATION", "30")
	t.Setenv("PLATFORM_FEE_RATE", "0.25")

	cfg := LoadGameConfig()

	assert.Equal(t, int64(50), cfg.MinBet)
	assert.Equal(t, int64(20000), cfg.MaxBet)
	assert.Equal(t, 30, cfg.BattleDuration)
	assert.Equal(t, 0.25, cfg.PlatformFeeRate)
}

func TestLoadGameConfigRejectsBadValues(t *testing.T) {
	t.Setenv("MIN_BET", "not-a-number")
	t.Setenv("BATTLE_DURATION", "-5")

	cfg := LoadGameConfig()

	assert.Equal(t, int64(100), cfg.MinBet, "unparseable value falls back to default")
	assert.Equal(t, 60, cfg.BattleDuration, "non-positive duration falls back to default")
}
