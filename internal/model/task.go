package model

import (
	"fmt"
	"strconv"
)

// ContentKind identifies what a task downloads.
type ContentKind string

const (
	// ContentMovie is a standalone movie identified by a catalog ID.
	ContentMovie ContentKind = "movie"

	// ContentEpisode is a single TV episode identified by a catalog ID
	// plus season and episode numbers.
	ContentEpisode ContentKind = "tv"
)

// QualityBest selects the best available rendition.
const QualityBest = "best"

// DownloadTask describes one unit of download work. It is created by
// task expansion (CLI request, batch file, or show enumeration) and
// consumed exactly once by the batch orchestrator.
type DownloadTask struct {
	Kind     ContentKind
	RemoteID int

	// Season and Episode are set only when Kind is ContentEpisode.
	Season  int
	Episode int

	// Languages is never empty; the first entry is the primary language
	// and drives video+audio selection, the rest are audio-only overlays.
	Languages []string

	// Quality is either QualityBest or a positive integer giving the
	// target vertical resolution ceiling.
	Quality string

	// OutputFile is an optional explicit output path. When empty a path
	// is derived from metadata by the caller.
	OutputFile string
}

// Validate checks the task contract before scheduling.
func (t *DownloadTask) Validate() error {
	switch t.Kind {
	case ContentMovie, ContentEpisode:
	default:
		return fmt.Errorf("unknown content kind %q", t.Kind)
	}
	if t.RemoteID <= 0 {
		return fmt.Errorf("invalid remote id %d", t.RemoteID)
	}
	if t.Episode > 0 && t.Season <= 0 {
		return fmt.Errorf("episode %d requires a season", t.Episode)
	}
	if t.Kind == ContentEpisode && (t.Season <= 0 || t.Episode <= 0) {
		return fmt.Errorf("tv task requires season and episode")
	}
	if len(t.Languages) == 0 {
		return fmt.Errorf("languages must not be empty")
	}
	if t.Quality != QualityBest {
		q, err := strconv.Atoi(t.Quality)
		if err != nil || q <= 0 {
			return fmt.Errorf("invalid quality %q", t.Quality)
		}
	}
	return nil
}

// PrimaryLanguage returns the first language in the task's list.
func (t *DownloadTask) PrimaryLanguage() string {
	return t.Languages[0]
}

// MultiLanguage reports whether the task requests an audio merge.
func (t *DownloadTask) MultiLanguage() bool {
	return len(t.Languages) > 1
}

// String returns a compact description used as the default progress row
// label, e.g. "Movie 550" or "TV 60625 S04E04".
func (t *DownloadTask) String() string {
	if t.Kind == ContentEpisode {
		return fmt.Sprintf("TV %d S%02dE%02d", t.RemoteID, t.Season, t.Episode)
	}
	return fmt.Sprintf("Movie %d", t.RemoteID)
}
