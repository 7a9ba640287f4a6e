package models

import "time"

// Match types
const (
	MatchTypeQuick      = "quick"
	MatchTypePrivate    = "private"
	MatchTypePractice   = "practice"
	MatchTypeTournament = "tournament"
)

// Match statuses. Transitions are monotonic:
// waiting → ready → playing → finished. Only an unfilled private room
// sits in "waiting"; every other path is created already "ready".
const (
	MatchStatusWaiting  = "waiting"
	MatchStatusReady    = "ready"
	MatchStatusPlaying  = "playing"
	MatchStatusFinished = "finished"
)

// Match records one song battle between two track slots.
// Slot 2 may be a CPU track (practice): Player2ID stays nil.
type Match struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	MatchType string  `gorm:"type:varchar(16);not null;check:match_type IN ('quick','private','practice','tournament')" json:"match_type"`
	Status    string  `gorm:"type:varchar(16);not null;index;check:status IN ('waiting','ready','playing','finished')" json:"status"`
	RoomCode  *string `gorm:"type:varchar(6);index" json:"room_code,omitempty"`

	Player1ID           string `gorm:"index;not null" json:"player1_id"`
	Player1TrackID      string `gorm:"not null" json:"player1_track_id"`
	Player1TrackName    string `json:"player1_track_name"`
	Player1TrackArtist  string `json:"player1_track_artist"`
	Player1TrackImage   string `json:"player1_track_image,omitempty"`
	Player1TrackPreview string `json:"player1_track_preview,omitempty"`
	Player1Bet          int64  `gorm:"not null" json:"player1_bet"`

	Player2ID           *string `gorm:"index" json:"player2_id,omitempty"`
	Player2TrackID      string  `json:"player2_track_id,omitempty"`
	Player2TrackName    string  `json:"player2_track_name,omitempty"`
	Player2TrackArtist  string  `json:"player2_track_artist,omitempty"`
	Player2TrackImage   string  `json:"player2_track_image,omitempty"`
	Player2TrackPreview string  `json:"player2_track_preview,omitempty"`
	Player2Bet          int64   `json:"player2_bet"`

	TotalPot int64 `json:"total_pot"`

	// Set once, when status becomes finished.
	Winner             int   `gorm:"default:0;check:winner IN (0,1,2)" json:"winner"`
	Player1FinalPlays  int64 `json:"player1_final_plays"`
	Player2FinalPlays  int64 `json:"player2_final_plays"`
	Player1FinalHealth int   `json:"player1_final_health"`
	Player2FinalHealth int   `json:"player2_final_health"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Timestamps
}

// Slot1Track rebuilds the slot 1 track reference.
func (m *Match) Slot1Track() Track {
	return Track{
		ID:      m.Player1TrackID,
		Name:    m.Player1TrackName,
		Artist:  m.Player1TrackArtist,
		Image:   m.Player1TrackImage,
		Preview: m.Player1TrackPreview,
	}
}

// Slot2Track rebuilds the slot 2 track reference.
func (m *Match) Slot2Track() Track {
	return Track{
		ID:      m.Player2TrackID,
		Name:    m.Player2TrackName,
		Artist:  m.Player2TrackArtist,
		Image:   m.Player2TrackImage,
		Preview: m.Player2TrackPreview,
	}
}
