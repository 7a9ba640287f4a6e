package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/track/123", r.URL.Path)
		fmt.Fprint(w, `{
			"id": 123, "title": "Test Song", "rank": 750000, "preview": "https://cdn/p.mp3",
			"artist": {"id": 9, "name": "Tester"},
			"album": {"cover_big": "big.jpg", "cover_medium": "med.jpg"}
		}`)
	}))
	defer srv.Close()

	c := NewOracleClient()
	c.BaseURL = srv.URL

	track, err := c.TrackDetails("123")
	require.NoError(t, err)

	got := track.ToTrack()
	assert.Equal(t, "123", got.ID)
	assert.Equal(t, "Test Song", got.Name)
	assert.Equal(t, "Tester", got.Artist)
	assert.Equal(t, "big.jpg", got.Image, "big cover preferred")
	assert.Equal(t, "https://cdn/p.mp3", got.Preview)
}

func TestToTrackFallsBackToMediumCover(t *testing.T) {
	track := OracleTrack{Title: "x"}
	track.Album.CoverMedium = "med.jpg"
	assert.Equal(t, "med.jpg", track.ToTrack().Image)
}

func TestProjectedPopularity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 5, "rank": 420000}`)
	}))
	defer srv.Close()

	c := NewOracleClient()
	c.BaseURL = srv.URL
	assert.Equal(t, int64(420000), c.ProjectedPopularity("5"))
}

func TestProjectedPopularityUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOracleClient()
	c.BaseURL = srv.URL
	assert.Equal(t, int64(0), c.ProjectedPopularity("5"), "errors degrade to 0, never fail")
}

func TestSearchTracksEscapesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer srv.Close()

	c := NewOracleClient()
	c.BaseURL = srv.URL

	_, err := c.SearchTracks("AC/DC & friends")
	require.NoError(t, err)
	assert.Equal(t, "AC/DC & friends", gotQuery)
}
