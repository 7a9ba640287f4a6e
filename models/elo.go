package models

import "time"

// DefaultEloScore is assumed for any track without a stored record.
const DefaultEloScore = 1000

// TrackEloRecord holds the smoothed popularity score per track.
// Rows are created lazily on first lookup and refreshed by the chart
// job; they are only ever superseded, never deleted.
type TrackEloRecord struct {
	TrackID     string    `gorm:"primaryKey" json:"track_id"`
	EloScore    int64     `gorm:"not null;default:1000" json:"elo_score"`
	LastUpdated time.Time `gorm:"autoUpdateTime" json:"last_updated"`
}

func (TrackEloRecord) TableName() string {
	return "track_elo"
}
