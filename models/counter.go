package models

// Platform accumulator names
const (
	CounterPlatformRevenue = "platform_revenue"
	CounterJackpotPool     = "jackpot_pool"
)

// PlatformCounter is a named monotonic accumulator (cumulative platform
// revenue, jackpot pool). Mutated only through single-expression
// `value = value + ?` updates so concurrent settlements never lose counts.
type PlatformCounter struct {
	Name  string `gorm:"primaryKey" json:"name"`
	Value int64  `gorm:"not null;default:0" json:"value"`

	Timestamps
}

func (PlatformCounter) TableName() string {
	return "platform_counters"
}
