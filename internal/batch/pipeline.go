package batch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/stormino/vixsrc-downloader/internal/download"
	"github.com/stormino/vixsrc-downloader/internal/extractor"
	"github.com/stormino/vixsrc-downloader/internal/metadata"
	"github.com/stormino/vixsrc-downloader/internal/model"
	"github.com/stormino/vixsrc-downloader/internal/platform"
	"github.com/stormino/vixsrc-downloader/internal/progress"
)

// Runner executes a single download task against a progress sink.
type Runner interface {
	RunTask(ctx context.Context, task *model.DownloadTask, sink progress.Sink) error
}

// Pipeline is the production Runner: playlist extraction, then either a
// plain download or a multi-language merge, with metadata-derived
// naming when a provider is configured.
type Pipeline struct {
	Extractor *extractor.Extractor
	Executor  *download.Executor
	Metadata  metadata.Provider
	OutputDir string

	// URLOnly skips the download and prints resolved playlist URLs.
	URLOnly bool
}

// RunTask resolves and downloads one task. The sink receives the final
// completion row; errors are returned for the orchestrator to count.
func (p *Pipeline) RunTask(ctx context.Context, task *model.DownloadTask, sink progress.Sink) (err error) {
	tracker := progress.NewTracker(sink)
	description := p.describe(task)
	tracker.Describe(description)

	defer func() {
		if !p.URLOnly {
			tracker.Complete(err == nil, description)
		}
	}()

	if p.URLOnly {
		return p.printURLs(task)
	}

	output, err := p.resolveOutputPath(task)
	if err != nil {
		return err
	}

	if task.MultiLanguage() {
		resolve := func(language string) (string, error) {
			result, err := p.Extractor.Extract(p.Extractor.EmbedURLForTask(task, language), language)
			if err != nil {
				return "", err
			}
			if !result.Verified {
				log.Printf("[batch] %s lang=%s: playlist URL could not be verified, attempting download anyway", task, language)
			}
			return result.PlaylistURL, nil
		}
		// RunMultiLanguage reports the finished file itself.
		return p.Executor.RunMultiLanguage(ctx, resolve, output, task.Quality, task.Languages, tracker)
	}

	language := task.PrimaryLanguage()
	result, err := p.Extractor.Extract(p.Extractor.EmbedURLForTask(task, language), language)
	if err != nil {
		return fmt.Errorf("%s: %w", task, err)
	}
	if !result.Verified {
		log.Printf("[batch] %s: playlist URL could not be verified, attempting download anyway", task)
	}

	if err := p.Executor.Run(ctx, result.PlaylistURL, output, task.Quality, language, tracker); err != nil {
		return fmt.Errorf("%s: %w", task, err)
	}
	p.Executor.ReportOutput(output)
	return nil
}

// printURLs resolves and prints the playlist URL for every requested
// language without downloading anything.
func (p *Pipeline) printURLs(task *model.DownloadTask) error {
	var firstErr error
	for _, language := range task.Languages {
		result, err := p.Extractor.Extract(p.Extractor.EmbedURLForTask(task, language), language)
		if err != nil {
			log.Printf("[batch] %s lang=%s: %v", task, language, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Printf("%s\n", result.PlaylistURL)
	}
	return firstErr
}

// describe builds the progress row label, preferring metadata titles
// over raw catalog IDs.
func (p *Pipeline) describe(task *model.DownloadTask) string {
	if p.Metadata == nil || !p.Metadata.Available() {
		return task.String()
	}
	switch task.Kind {
	case model.ContentMovie:
		if info, err := p.Metadata.MovieInfo(task.RemoteID); err == nil && info.Title != "" {
			return info.Title
		}
	case model.ContentEpisode:
		if info, err := p.Metadata.EpisodeInfo(task.RemoteID, task.Season, task.Episode); err == nil && info.ShowName != "" {
			return fmt.Sprintf("%s S%02dE%02d", info.ShowName, task.Season, task.Episode)
		}
	}
	return task.String()
}

// resolveOutputPath decides where the task's file lands. An explicit
// relative OutputFile is anchored at OutputDir; otherwise the filename
// comes from metadata (with ID-based fallbacks), and episodes are
// grouped under "<Show>/Season NN/" when metadata is available.
func (p *Pipeline) resolveOutputPath(task *model.DownloadTask) (string, error) {
	if task.OutputFile != "" {
		output := task.OutputFile
		if !filepath.IsAbs(output) {
			output = filepath.Join(p.OutputDir, output)
		}
		if err := platform.EnsureDir(filepath.Dir(output)); err != nil {
			return "", err
		}
		return output, nil
	}

	dir := p.OutputDir
	var filename string
	switch task.Kind {
	case model.ContentMovie:
		filename = fmt.Sprintf("movie_%d.%s", task.RemoteID, metadata.DefaultExtension)
		if p.Metadata != nil {
			filename = p.Metadata.MovieFilename(task.RemoteID)
		}
	case model.ContentEpisode:
		filename = fmt.Sprintf("tv_%d_s%02de%02d.%s", task.RemoteID, task.Season, task.Episode, metadata.DefaultExtension)
		if p.Metadata != nil {
			filename = p.Metadata.EpisodeFilename(task.RemoteID, task.Season, task.Episode)
			if p.Metadata.Available() {
				if show := p.Metadata.ShowName(task.RemoteID); show != "" {
					dir = filepath.Join(dir, platform.SanitizeFilename(show), fmt.Sprintf("Season %02d", task.Season))
				}
			}
		}
	}

	if err := platform.EnsureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}
