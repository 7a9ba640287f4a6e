package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"song-battle-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticOpponent(t *testing.T) {
	s := &PracticeService{}
	user := models.Track{ID: "t1", Name: "My Song", Artist: "Me", Image: "img", Preview: "prev"}

	cpu := s.syntheticOpponent(user)

	assert.True(t, strings.HasPrefix(cpu.ID, "cpu_"))
	assert.NotEqual(t, user.ID, cpu.ID)
	assert.Equal(t, "Generated Rival", cpu.Name)
	assert.Equal(t, "CPU Challenger", cpu.Artist)
	assert.Equal(t, user.Preview, cpu.Preview, "synthetic opponent reuses the user's audio")
}

func TestChartPicksFiltering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [
			{"id": 1, "title": "Mine", "preview": "p", "artist": {"id": 10, "name": "Me"}},
			{"id": 2, "title": "No Preview", "preview": "", "artist": {"id": 11, "name": "Other"}},
			{"id": 3, "title": "Good", "preview": "p", "artist": {"id": 12, "name": "Other"}},
			{"id": 4, "title": "Same Artist", "preview": "p", "artist": {"id": 10, "name": "Me"}}
		]}`)
	}))
	defer srv.Close()

	oracle := NewOracleClient()
	oracle.BaseURL = srv.URL
	s := &PracticeService{Oracle: oracle}

	user := models.Track{ID: "1", Name: "Mine", Artist: "Me"}
	picks := s.chartPicks(user)

	require.Len(t, picks, 2)
	// The user's own song and preview-less tracks are excluded; a
	// same-artist track survives but sorts after different artists.
	assert.Equal(t, "3", picks[0].ID)
	assert.Equal(t, "4", picks[1].ID)
}

func TestSearchPicksFiltering(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"data": [
			{"id": 7, "title": "Hit", "preview": "p", "artist": {"id": 20, "name": "Someone"}},
			{"id": 8, "title": "Silent", "preview": "", "artist": {"id": 21, "name": "Else"}}
		]}`)
	}))
	defer srv.Close()

	oracle := NewOracleClient()
	oracle.BaseURL = srv.URL
	s := &PracticeService{Oracle: oracle}

	picks := s.searchPicks(models.Track{ID: "1", Artist: "Me"})

	assert.Equal(t, "Me hits", gotQuery)
	require.Len(t, picks, 1)
	assert.Equal(t, "7", picks[0].ID)
}

func TestChartPicksOracleDown(t *testing.T) {
	oracle := NewOracleClient()
	oracle.BaseURL = "http://127.0.0.1:0"
	s := &PracticeService{Oracle: oracle}

	assert.Nil(t, s.chartPicks(models.Track{ID: "1"}))
}
