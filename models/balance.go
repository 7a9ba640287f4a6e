package models

// Balance transaction types
const (
	TxTypeBet            = "bet"
	TxTypeWin            = "win"
	TxTypeFee            = "fee"
	TxTypePracticeReward = "practice_reward"
	TxTypeCashout        = "cashout"
	TxTypeRefund         = "refund"
)

// UserBalance is the platform-currency balance. It is mutated only by the
// settlement service, inside a row-locked transaction.
type UserBalance struct {
	UserID  string `gorm:"primaryKey" json:"user_id"`
	Balance int64  `gorm:"not null;default:0;check:balance >= 0" json:"balance"`

	Timestamps
}

func (UserBalance) TableName() string {
	return "user_balances"
}

// DemoBalance is the isolated practice-mode balance. Only practice bets
// touch it; rewards for practice wins go to the real balance instead.
type DemoBalance struct {
	UserID  string `gorm:"primaryKey" json:"user_id"`
	Balance int64  `gorm:"not null;default:1000;check:balance >= 0" json:"balance"`

	Timestamps
}

func (DemoBalance) TableName() string {
	return "demo_balances"
}

// BalanceTransaction is the append-only ledger of balance mutations.
type BalanceTransaction struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string  `gorm:"index" json:"user_id,omitempty"`
	MatchID *string `gorm:"index" json:"match_id,omitempty"`
	Type    string  `gorm:"type:varchar(20);not null;check:type IN ('bet','win','fee','practice_reward','cashout','refund')" json:"type"`
	Amount  int64   `gorm:"not null" json:"amount"`

	Timestamps
}

func (BalanceTransaction) TableName() string {
	return "balance_transactions"
}
