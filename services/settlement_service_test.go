package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		feeRate  float64
		wantFee  int64
		wantNet  int64
	}{
		{name: "standard pot", amount: 1000, feeRate: 0.30, wantFee: 300, wantNet: 700},
		{name: "half fee rounds to even", amount: 215, feeRate: 0.30, wantFee: 64, wantNet: 151},
		{name: "half fee rounds up to even", amount: 105, feeRate: 0.30, wantFee: 32, wantNet: 73},
		{name: "zero amount", amount: 0, feeRate: 0.30, wantFee: 0, wantNet: 0},
		{name: "negative amount", amount: -50, feeRate: 0.30, wantFee: 0, wantNet: 0},
		{name: "rate clamped low", amount: 100, feeRate: -0.5, wantFee: 0, wantNet: 100},
		{name: "rate clamped high", amount: 100, feeRate: 1.5, wantFee: 100, wantNet: 0},
		{name: "minimum stakes", amount: 200, feeRate: 0.30, wantFee: 60, wantNet: 140},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, net := Split(tt.amount, tt.feeRate)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantNet, net)
		})
	}
}

func TestSplitConserves(t *testing.T) {
	// fee + net must always reassemble the amount.
	for _, amount := range []int64{1, 2, 3, 99, 100, 101, 215, 333, 10000, 20001} {
		fee, net := Split(amount, 0.30)
		assert.Equal(t, amount, fee+net, "amount %d", amount)
		assert.GreaterOrEqual(t, fee, int64(0))
		assert.GreaterOrEqual(t, net, int64(0))
	}
}

func TestTournamentEntrySplit(t *testing.T) {
	tests := []struct {
		name          string
		entry         int64
		jackpotActive bool
		want          TournamentEntrySplit
	}{
		{
			name:          "before revenue threshold",
			entry:         500,
			jackpotActive: false,
			want: TournamentEntrySplit{
				PlatformFee:         150,
				JackpotContribution: 0,
				PlatformNet:         150,
				PrizeContribution:   350,
			},
		},
		{
			name:          "after revenue threshold",
			entry:         500,
			jackpotActive: true,
			want: TournamentEntrySplit{
				PlatformFee:         150,
				JackpotContribution: 15,
				PlatformNet:         135,
				PrizeContribution:   350,
			},
		},
		{
			name:          "small entry rounds jackpot",
			entry:         105,
			jackpotActive: true,
			want: TournamentEntrySplit{
				PlatformFee:         32,
				JackpotContribution: 3,
				PlatformNet:         29,
				PrizeContribution:   73,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tournamentEntrySplit(tt.entry, 0.30, 0.10, tt.jackpotActive)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTournamentEntrySplitConserves(t *testing.T) {
	// Jackpot + platform net must reassemble the fee; fee + prize the entry.
	for _, entry := range []int64{100, 215, 500, 999, 10000} {
		for _, active := range []bool{false, true} {
			got := tournamentEntrySplit(entry, 0.30, 0.10, active)
			assert.Equal(t, got.PlatformFee, got.JackpotContribution+got.PlatformNet)
			assert.Equal(t, entry, got.PlatformFee+got.PrizeContribution)
		}
	}
}
