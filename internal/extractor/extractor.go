package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/stormino/vixsrc-downloader/internal/client"
	"github.com/stormino/vixsrc-downloader/internal/errs"
	"github.com/stormino/vixsrc-downloader/internal/model"
)

// ManifestHeader is the signature an HLS manifest body starts with.
const ManifestHeader = "#EXTM3U"

// Regex patterns for extraction. The embed page format is undocumented
// and changes without notice; each pattern belongs to one fallback
// strategy. masterPlaylist fields are matched independently because
// their order in the page is not guaranteed.
var (
	masterPlaylistPattern = regexp.MustCompile(`window\.masterPlaylist\s*=\s*\{[^}]*\{[^}]*\}[^}]*\}`)
	urlFieldPattern       = regexp.MustCompile(`url:\s*['"]([^'"]+)['"]`)
	tokenFieldPattern     = regexp.MustCompile(`['"]token['"]\s*:\s*['"]([^'"]+)['"]`)
	expiresFieldPattern   = regexp.MustCompile(`['"]expires['"]\s*:\s*['"]([^'"]+)['"]`)
	asnFieldPattern       = regexp.MustCompile(`['"]asn['"]\s*:\s*['"]([^'"]*)['"]`)

	directPlaylistPattern = regexp.MustCompile(`https://vixsrc\.to/playlist/(\d+)\?[^"']*`)
	apiEndpointPattern    = regexp.MustCompile(`["'](/api/[^"']+)["']`)
	videoIDPattern        = regexp.MustCompile(`(?i)video[_-]?id["']?\s*[:=]\s*["']?(\d+)`)
)

// Extractor recovers an authenticated playlist URL from an embed page by
// running a fixed-priority chain of independent strategies. The first
// strategy producing a non-empty candidate wins.
type Extractor struct {
	client  *client.Client
	baseURL string
	quiet   bool

	strategies []strategy
}

// strategy is one (name, extract) pair of the fallback chain. It returns
// the candidate URL (empty when the strategy does not apply) and whether
// a live fetch confirmed the manifest signature.
type strategy struct {
	name string
	run  func(html, embedURL, language string) (string, bool)
}

// New creates an extractor using the given pre-configured HTTP client.
func New(httpClient *client.Client, baseURL string, quiet bool) *Extractor {
	e := &Extractor{
		client:  httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		quiet:   quiet,
	}
	e.strategies = []strategy{
		{name: "master playlist object", run: e.fromMasterPlaylist},
		{name: "direct link", run: e.fromDirectPattern},
		{name: "api endpoints", run: e.fromAPIEndpoints},
		{name: "video id", run: e.fromVideoID},
	}
	return e
}

// MovieEmbedURL returns the embed page URL for a movie.
func (e *Extractor) MovieEmbedURL(remoteID int, language string) string {
	return fmt.Sprintf("%s/movie/%d?lang=%s", e.baseURL, remoteID, language)
}

// EpisodeEmbedURL returns the embed page URL for a TV episode.
func (e *Extractor) EpisodeEmbedURL(remoteID, season, episode int, language string) string {
	return fmt.Sprintf("%s/tv/%d/%d/%d?lang=%s", e.baseURL, remoteID, season, episode, language)
}

// EmbedURLForTask returns the embed page URL for a task with the given
// language substituted (multi-language merges resolve one URL per
// language).
func (e *Extractor) EmbedURLForTask(task *model.DownloadTask, language string) string {
	if task.Kind == model.ContentEpisode {
		return e.EpisodeEmbedURL(task.RemoteID, task.Season, task.Episode, language)
	}
	return e.MovieEmbedURL(task.RemoteID, language)
}

// Extract fetches the embed page once and runs the strategy chain.
// Returns errs.ErrNotFound when every strategy comes up empty; that is a
// normal outcome, not a fatal condition.
func (e *Extractor) Extract(embedURL, language string) (model.ExtractionResult, error) {
	e.logf("fetching embed page: %s", embedURL)

	body, err := e.client.GetBody(embedURL)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("fetch embed page: %w", err)
	}
	html := string(body)

	for _, s := range e.strategies {
		candidate, verified := s.run(html, embedURL, language)
		if candidate == "" {
			continue
		}
		e.logf("playlist url via %s strategy: %s", s.name, candidate)
		return model.ExtractionResult{PlaylistURL: candidate, Verified: verified}, nil
	}

	e.logf("could not extract playlist url; page may require javascript or changed format")
	return model.ExtractionResult{}, errs.ErrNotFound
}

// fromMasterPlaylist extracts the window.masterPlaylist script object.
func (e *Extractor) fromMasterPlaylist(html, embedURL, language string) (string, bool) {
	section := masterPlaylistPattern.FindString(html)
	if section == "" {
		return "", false
	}

	urlMatch := urlFieldPattern.FindStringSubmatch(section)
	tokenMatch := tokenFieldPattern.FindStringSubmatch(section)
	expiresMatch := expiresFieldPattern.FindStringSubmatch(section)
	if urlMatch == nil || tokenMatch == nil || expiresMatch == nil {
		return "", false
	}

	asn := ""
	if m := asnFieldPattern.FindStringSubmatch(section); m != nil {
		asn = m[1]
	}

	playlistURL := AssemblePlaylistURL(urlMatch[1], tokenMatch[1], expiresMatch[1], asn, language)

	// Verification failure downgrades the result, it never discards the
	// URL: the manifest may still play despite the shape check failing.
	verified := e.verify(playlistURL, embedURL)
	return playlistURL, verified
}

// AssemblePlaylistURL builds the final playlist URL from the fields of
// the master playlist object. h=1 and lang are mandatory additions that
// are never present in the embedded object. The function is pure:
// re-running it on the same inputs yields the same string.
func AssemblePlaylistURL(base, token, expires, asn, language string) string {
	params := []string{
		"token=" + token,
		"expires=" + expires,
	}
	if asn != "" {
		params = append(params, "asn="+asn)
	}
	params = append(params, "h=1", "lang="+language)

	separator := "?"
	if strings.Contains(base, "?") {
		separator = "&"
	}
	assembled := base + separator + strings.Join(params, "&")

	return strings.ReplaceAll(assembled, "&amp;", "&")
}

// verify issues a GET against the assembled URL with the embed page as
// referer and checks the manifest signature. On success the manifest is
// also decoded to report the available variant count.
func (e *Extractor) verify(playlistURL, embedURL string) bool {
	e.logf("verifying playlist url")

	resp, err := e.client.GetWithReferer(playlistURL, embedURL)
	if err != nil {
		e.logf("playlist verification error: %v", err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		e.logf("playlist verification failed: status %d", resp.StatusCode)
		return false
	}
	if !bytes.HasPrefix(body, []byte(ManifestHeader)) {
		e.logf("playlist verification failed: missing manifest header")
		return false
	}

	if pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true); err == nil && listType == m3u8.MASTER {
		master := pl.(*m3u8.MasterPlaylist)
		e.logf("playlist verified: %d variant(s)", len(master.Variants))
	} else {
		e.logf("playlist verified")
	}
	return true
}

// fromDirectPattern matches a literal playlist URL scoped to the target
// domain. The hit is treated as already canonical, no verification.
func (e *Extractor) fromDirectPattern(html, embedURL, language string) (string, bool) {
	match := directPlaylistPattern.FindString(html)
	if match == "" {
		return "", false
	}
	return strings.ReplaceAll(match, "&amp;", "&"), false
}

// fromAPIEndpoints probes same-origin /api/ paths found in the page and
// scans their JSON responses for a manifest-looking string value.
func (e *Extractor) fromAPIEndpoints(html, embedURL, language string) (string, bool) {
	matches := apiEndpointPattern.FindAllStringSubmatch(html, -1)
	if matches == nil {
		return "", false
	}

	seen := make(map[string]bool)
	for _, m := range matches {
		apiPath := m[1]
		if seen[apiPath] {
			continue
		}
		seen[apiPath] = true

		apiURL := e.resolveURL(apiPath)
		body, err := e.client.GetBody(apiURL)
		if err != nil {
			e.logf("api call failed for %s: %v", apiURL, err)
			continue
		}

		var data map[string]interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			continue
		}
		if found := findPlaylistInJSON(data); found != "" {
			return found, false
		}
	}
	return "", false
}

// findPlaylistInJSON scans the top-level string values of a decoded API
// response for something manifest-like.
func findPlaylistInJSON(data map[string]interface{}) string {
	for _, value := range data {
		s, ok := value.(string)
		if !ok {
			continue
		}
		if strings.Contains(s, "m3u8") || strings.Contains(s, "playlist") {
			return s
		}
	}
	return ""
}

// fromVideoID extracts a bare numeric identifier and probes the two
// conventional playlist path templates.
func (e *Extractor) fromVideoID(html, embedURL, language string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	videoID := m[1]

	probes := []string{
		fmt.Sprintf("%s/playlist/%s", e.baseURL, videoID),
		fmt.Sprintf("%s/api/playlist/%s", e.baseURL, videoID),
	}

	for _, probe := range probes {
		resp, err := e.client.Get(probe)
		if err != nil {
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		finalURL := resp.Request.URL.String()
		contentType := resp.Header.Get("Content-Type")
		resp.Body.Close()

		if readErr != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		if strings.Contains(string(body), "m3u8") || strings.HasPrefix(contentType, "application/") {
			return finalURL, false
		}
	}
	return "", false
}

// resolveURL joins a same-origin path with the base URL.
func (e *Extractor) resolveURL(path string) string {
	base, err := url.Parse(e.baseURL)
	if err != nil {
		return e.baseURL + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return e.baseURL + path
	}
	return base.ResolveReference(ref).String()
}

func (e *Extractor) logf(format string, args ...interface{}) {
	if e.quiet {
		return
	}
	log.Printf("[extractor] "+format, args...)
}
