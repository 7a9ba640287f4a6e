package models

// Tournament pool statuses
const (
	TournamentStatusRegistration = "registration"
	TournamentStatusFull         = "full"
	TournamentStatusClosed       = "closed"
)

// TournamentPool is the shared-entry pool. There is no live pairing:
// every accepted entrant grows the prize pool by the net-of-fee portion
// of their entry.
type TournamentPool struct {
	ID                  string `gorm:"primaryKey;type:uuid" json:"id"`
	Name                string `gorm:"not null" json:"name"`
	EntryFee            int64  `gorm:"not null" json:"entry_fee"`
	PrizePool           int64  `gorm:"not null;default:0" json:"prize_pool"`
	MaxParticipants     int    `gorm:"not null" json:"max_participants"`
	CurrentParticipants int    `gorm:"not null;default:0" json:"current_participants"`
	Status              string `gorm:"type:varchar(16);not null;default:'registration';check:status IN ('registration','full','closed')" json:"status"`

	Timestamps

	Participants []TournamentParticipant `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`
}

func (TournamentPool) TableName() string {
	return "tournament_pools"
}

// TournamentParticipant is one accepted entry. The composite unique
// index makes one-entry-per-user a store invariant, not just a check.
type TournamentParticipant struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	TournamentID string `gorm:"not null;uniqueIndex:idx_tournament_entry" json:"tournament_id"`
	UserID       string `gorm:"index;not null;uniqueIndex:idx_tournament_entry" json:"user_id"`
	TrackID      string `json:"track_id"`
	TrackName    string `json:"track_name"`
	EntryPaid    int64  `gorm:"not null" json:"entry_paid"`

	Timestamps
}

func (TournamentParticipant) TableName() string {
	return "tournament_participants"
}
