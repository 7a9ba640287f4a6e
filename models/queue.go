package models

// MatchmakingQueueEntry is a quick-match wait ticket. Created when no
// compatible opponent exists, deleted on match or cancel/timeout.
type MatchmakingQueueEntry struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"index;not null" json:"user_id"`
	TrackID      string `gorm:"not null" json:"track_id"`
	TrackName    string `json:"track_name"`
	TrackArtist  string `json:"track_artist"`
	TrackImage   string `json:"track_image,omitempty"`
	TrackPreview string `json:"track_preview,omitempty"`
	BetAmount    int64  `gorm:"not null;index" json:"bet_amount"`

	Timestamps
}

// QueueTrack rebuilds the queued track reference.
func (e *MatchmakingQueueEntry) QueueTrack() Track {
	return Track{
		ID:      e.TrackID,
		Name:    e.TrackName,
		Artist:  e.TrackArtist,
		Image:   e.TrackImage,
		Preview: e.TrackPreview,
	}
}
