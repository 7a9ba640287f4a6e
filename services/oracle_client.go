package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"song-battle-system/models"
)

// OracleClient talks to the popularity oracle (Deezer-shaped REST API).
// Every call is optional for the engine: callers fall back to defaults
// when the oracle is unreachable.
type OracleClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewOracleClient() *OracleClient {
	baseURL := os.Getenv("ORACLE_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.deezer.com"
	}

	return &OracleClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OracleTrack is the oracle's track payload. Rank is the popularity
// signal used for projections and ELO refresh.
type OracleTrack struct {
	ID      json.Number `json:"id"`
	Title   string      `json:"title"`
	Rank    int64       `json:"rank"`
	Preview string      `json:"preview"`
	Artist  struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"artist"`
	Album struct {
		CoverBig    string `json:"cover_big"`
		CoverMedium string `json:"cover_medium"`
	} `json:"album"`
}

// ToTrack converts the oracle payload into the engine's track reference.
func (t *OracleTrack) ToTrack() models.Track {
	image := t.Album.CoverBig
	if image == "" {
		image = t.Album.CoverMedium
	}
	return models.Track{
		ID:      t.ID.String(),
		Name:    t.Title,
		Artist:  t.Artist.Name,
		Image:   image,
		Preview: t.Preview,
	}
}

// OracleArtist is the related-artist payload.
type OracleArtist struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type trackListResponse struct {
	Data []OracleTrack `json:"data"`
}

type artistListResponse struct {
	Data []OracleArtist `json:"data"`
}

func (c *OracleClient) getJSON(path string, out interface{}) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("failed to call oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode oracle response: %w", err)
	}
	return nil
}

// TrackDetails fetches one track, including its popularity rank.
func (c *OracleClient) TrackDetails(trackID string) (*OracleTrack, error) {
	var track OracleTrack
	if err := c.getJSON(fmt.Sprintf("/track/%s", url.PathEscape(trackID)), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// ChartTracks fetches the currently-popular tracks.
func (c *OracleClient) ChartTracks() ([]OracleTrack, error) {
	var resp trackListResponse
	if err := c.getJSON("/chart/0/tracks?limit=20", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SearchTracks runs a keyword search.
func (c *OracleClient) SearchTracks(query string) ([]OracleTrack, error) {
	var resp trackListResponse
	if err := c.getJSON("/search?q="+url.QueryEscape(query)+"&limit=20", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// RelatedArtists fetches artists adjacent to the given one.
func (c *OracleClient) RelatedArtists(artistID string) ([]OracleArtist, error) {
	var resp artistListResponse
	if err := c.getJSON(fmt.Sprintf("/artist/%s/related", url.PathEscape(artistID)), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ArtistTopTracks fetches an artist's top tracks, preferring previews.
func (c *OracleClient) ArtistTopTracks(artistID string) ([]OracleTrack, error) {
	var resp trackListResponse
	if err := c.getJSON(fmt.Sprintf("/artist/%s/top?limit=6", url.PathEscape(artistID)), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ProjectedPopularity returns the track's rank, or 0 when unknown.
func (c *OracleClient) ProjectedPopularity(trackID string) int64 {
	track, err := c.TrackDetails(trackID)
	if err != nil || track == nil {
		return 0
	}
	return track.Rank
}
