package models

// Private room statuses
const (
	RoomStatusOpen = "open"
	RoomStatusFull = "full"
)

// PrivateRoom links an invite code to a half-filled match.
// Deleted only when the creator abandons it before a second player joins.
type PrivateRoom struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	RoomCode  string `gorm:"type:varchar(6);uniqueIndex;not null" json:"room_code"`
	CreatorID string `gorm:"index;not null" json:"creator_id"`
	MatchID   string `gorm:"index;not null" json:"match_id"`
	MinBet    int64  `gorm:"not null" json:"min_bet"`
	Status    string `gorm:"type:varchar(8);not null;default:'open';check:status IN ('open','full')" json:"status"`

	Timestamps
}
