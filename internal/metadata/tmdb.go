package metadata

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/stormino/vixsrc-downloader/internal/client"
	"github.com/stormino/vixsrc-downloader/internal/platform"
)

// TMDB API constants
const (
	DefaultAPIBaseURL = "https://api.themoviedb.org/3"
	DefaultExtension  = "mp4"
)

// MovieInfo is the subset of movie metadata used for naming.
type MovieInfo struct {
	Title string
	Year  string
}

// EpisodeInfo is the subset of episode metadata used for naming.
type EpisodeInfo struct {
	ShowName    string
	EpisodeName string
	Year        string
	Season      int
	Episode     int
}

// Provider is the metadata lookup surface the orchestrator depends on.
// Absence of credentials degrades filename generation only; it never
// blocks extraction or download.
type Provider interface {
	Available() bool
	MovieInfo(remoteID int) (*MovieInfo, error)
	EpisodeInfo(remoteID, season, episode int) (*EpisodeInfo, error)
	ShowName(remoteID int) string
	Seasons(remoteID int) ([]int, error)
	SeasonEpisodes(remoteID, season int) ([]int, error)
	MovieFilename(remoteID int) string
	EpisodeFilename(remoteID, season, episode int) string
}

// TMDB fetches title and episode metadata from The Movie Database.
type TMDB struct {
	apiKey  string
	baseURL string
	client  *client.Client
}

// New creates a TMDB provider. An empty key yields a degraded provider
// that only generates fallback filenames.
func New(apiKey string, httpClient *client.Client) *TMDB {
	return &TMDB{
		apiKey:  apiKey,
		baseURL: DefaultAPIBaseURL,
		client:  httpClient,
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (t *TMDB) SetBaseURL(u string) {
	t.baseURL = strings.TrimSuffix(u, "/")
}

// Available reports whether API lookups can be performed.
func (t *TMDB) Available() bool {
	return t.apiKey != ""
}

type movieResponse struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type showResponse struct {
	Name         string `json:"name"`
	FirstAirDate string `json:"first_air_date"`
	Seasons      []struct {
		SeasonNumber int `json:"season_number"`
	} `json:"seasons"`
}

type seasonResponse struct {
	Episodes []struct {
		EpisodeNumber int    `json:"episode_number"`
		Name          string `json:"name"`
	} `json:"episodes"`
}

// MovieInfo returns movie title and release year.
func (t *TMDB) MovieInfo(remoteID int) (*MovieInfo, error) {
	var m movieResponse
	if err := t.get(fmt.Sprintf("/movie/%d", remoteID), &m); err != nil {
		return nil, err
	}
	return &MovieInfo{Title: m.Title, Year: yearOf(m.ReleaseDate)}, nil
}

// EpisodeInfo returns show and episode names for one episode.
func (t *TMDB) EpisodeInfo(remoteID, season, episode int) (*EpisodeInfo, error) {
	var show showResponse
	if err := t.get(fmt.Sprintf("/tv/%d", remoteID), &show); err != nil {
		return nil, err
	}

	var s seasonResponse
	if err := t.get(fmt.Sprintf("/tv/%d/season/%d", remoteID, season), &s); err != nil {
		return nil, err
	}

	info := &EpisodeInfo{
		ShowName: show.Name,
		Year:     yearOf(show.FirstAirDate),
		Season:   season,
		Episode:  episode,
	}
	for _, ep := range s.Episodes {
		if ep.EpisodeNumber == episode {
			info.EpisodeName = ep.Name
			break
		}
	}
	return info, nil
}

// ShowName returns the show name, or empty on any failure.
func (t *TMDB) ShowName(remoteID int) string {
	var show showResponse
	if err := t.get(fmt.Sprintf("/tv/%d", remoteID), &show); err != nil {
		return ""
	}
	return show.Name
}

// Seasons lists season numbers of a show, skipping season 0 specials.
func (t *TMDB) Seasons(remoteID int) ([]int, error) {
	var show showResponse
	if err := t.get(fmt.Sprintf("/tv/%d", remoteID), &show); err != nil {
		return nil, err
	}
	var seasons []int
	for _, s := range show.Seasons {
		if s.SeasonNumber == 0 {
			continue
		}
		seasons = append(seasons, s.SeasonNumber)
	}
	return seasons, nil
}

// SeasonEpisodes lists episode numbers of one season.
func (t *TMDB) SeasonEpisodes(remoteID, season int) ([]int, error) {
	var s seasonResponse
	if err := t.get(fmt.Sprintf("/tv/%d/season/%d", remoteID, season), &s); err != nil {
		return nil, err
	}
	var episodes []int
	for _, ep := range s.Episodes {
		episodes = append(episodes, ep.EpisodeNumber)
	}
	return episodes, nil
}

// MovieFilename generates Title.Year.mp4, or movie_<id>.mp4 when
// metadata is unavailable.
func (t *TMDB) MovieFilename(remoteID int) string {
	if t.Available() {
		if info, err := t.MovieInfo(remoteID); err == nil && info.Title != "" {
			name := dotted(info.Title)
			if info.Year != "" {
				return fmt.Sprintf("%s.%s.%s", name, info.Year, DefaultExtension)
			}
			return fmt.Sprintf("%s.%s", name, DefaultExtension)
		}
		log.Printf("[metadata] movie %d lookup failed, using basic filename", remoteID)
	}
	return fmt.Sprintf("movie_%d.%s", remoteID, DefaultExtension)
}

// EpisodeFilename generates Show.SxxEyy.Episode.mp4, or
// tv_<id>_sXXeYY.mp4 when metadata is unavailable.
func (t *TMDB) EpisodeFilename(remoteID, season, episode int) string {
	if t.Available() {
		if info, err := t.EpisodeInfo(remoteID, season, episode); err == nil && info.ShowName != "" {
			show := dotted(info.ShowName)
			se := fmt.Sprintf("S%02dE%02d", season, episode)
			if info.EpisodeName != "" {
				return fmt.Sprintf("%s.%s.%s.%s", show, se, dotted(info.EpisodeName), DefaultExtension)
			}
			return fmt.Sprintf("%s.%s.%s", show, se, DefaultExtension)
		}
		log.Printf("[metadata] episode %d S%02dE%02d lookup failed, using basic filename", remoteID, season, episode)
	}
	return fmt.Sprintf("tv_%d_s%02de%02d.%s", remoteID, season, episode, DefaultExtension)
}

// get issues an authenticated API request and decodes the JSON response.
func (t *TMDB) get(path string, out interface{}) error {
	if !t.Available() {
		return fmt.Errorf("tmdb api key not configured")
	}
	u := fmt.Sprintf("%s%s?api_key=%s", t.baseURL, path, url.QueryEscape(t.apiKey))
	body, err := t.client.GetBody(u)
	if err != nil {
		return fmt.Errorf("tmdb request %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb decode %s: %w", path, err)
	}
	return nil
}

// dotted converts a title into its dotted, sanitized filename form.
func dotted(title string) string {
	return platform.SanitizeFilename(strings.ReplaceAll(title, " ", "."))
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
