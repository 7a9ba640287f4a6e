package services

import (
	"testing"

	"song-battle-system/models"

	"github.com/stretchr/testify/assert"
)

func TestWinnerUserID(t *testing.T) {
	opponent := "user-2"

	tests := []struct {
		name      string
		match     *models.Match
		winner    int
		wantID    string
		wantFound bool
	}{
		{
			name:      "slot one wins",
			match:     &models.Match{Player1ID: "user-1", Player2ID: &opponent},
			winner:    1,
			wantID:    "user-1",
			wantFound: true,
		},
		{
			name:      "slot two wins",
			match:     &models.Match{Player1ID: "user-1", Player2ID: &opponent},
			winner:    2,
			wantID:    "user-2",
			wantFound: true,
		},
		{
			name:      "slot two wins but slot is empty",
			match:     &models.Match{Player1ID: "user-1"},
			winner:    2,
			wantID:    "",
			wantFound: false,
		},
		{
			name:      "cpu opponent losing pays the human",
			match:     &models.Match{Player1ID: "user-1"},
			winner:    1,
			wantID:    "user-1",
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, found := winnerUserID(tt.match, tt.winner)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}
