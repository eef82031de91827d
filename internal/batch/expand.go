package batch

import (
	"fmt"
	"log"

	"github.com/stormino/vixsrc-downloader/internal/errs"
	"github.com/stormino/vixsrc-downloader/internal/metadata"
	"github.com/stormino/vixsrc-downloader/internal/model"
)

// ExpandShow enumerates episode tasks for a show. A zero season means
// every season, a zero episode means every episode of the selected
// season(s). Enumeration needs the metadata provider; without one the
// caller must name season and episode explicitly.
func ExpandShow(provider metadata.Provider, remoteID, season, episode int, languages []string, quality string) ([]*model.DownloadTask, error) {
	if season > 0 && episode > 0 {
		task := &model.DownloadTask{
			Kind:      model.ContentEpisode,
			RemoteID:  remoteID,
			Season:    season,
			Episode:   episode,
			Languages: languages,
			Quality:   quality,
		}
		return []*model.DownloadTask{task}, nil
	}

	if provider == nil || !provider.Available() {
		return nil, fmt.Errorf("enumerating show %d requires a TMDB API key", remoteID)
	}

	seasons := []int{season}
	if season == 0 {
		var err error
		seasons, err = provider.Seasons(remoteID)
		if err != nil {
			return nil, fmt.Errorf("list seasons for show %d: %w", remoteID, err)
		}
	}

	var tasks []*model.DownloadTask
	for _, s := range seasons {
		episodes, err := provider.SeasonEpisodes(remoteID, s)
		if err != nil {
			log.Printf("[batch] show %d season %d: %v", remoteID, s, err)
			continue
		}
		for _, e := range episodes {
			tasks = append(tasks, &model.DownloadTask{
				Kind:      model.ContentEpisode,
				RemoteID:  remoteID,
				Season:    s,
				Episode:   e,
				Languages: languages,
				Quality:   quality,
			})
		}
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("show %d: %w", remoteID, errs.ErrNoEpisodes)
	}
	return tasks, nil
}
