package errs

import (
	"errors"
)

var (
	// ErrNotFound indicates that every extraction strategy was exhausted
	// without producing a playlist URL. This is an expected outcome when
	// the embed page markup changes.
	ErrNotFound = errors.New("playlist url not found")
	// ErrNoDownloader indicates that neither yt-dlp nor ffmpeg is
	// available on the system.
	ErrNoDownloader = errors.New("no downloader available")
	// ErrPrimaryLanguage indicates that the primary language playlist
	// could not be resolved for a multi-language task.
	ErrPrimaryLanguage = errors.New("primary language unavailable")
	// ErrNoEpisodes indicates that the metadata provider returned no
	// seasons or episodes for a requested show.
	ErrNoEpisodes = errors.New("no episodes found")
)
