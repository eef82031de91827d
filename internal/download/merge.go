package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/stormino/vixsrc-downloader/internal/errs"
	"github.com/stormino/vixsrc-downloader/internal/platform"
	"github.com/stormino/vixsrc-downloader/internal/progress"
)

// Temp file names inside a merge working directory
const (
	primaryFileName  = "primary.mp4"
	audioFilePattern = "audio_%s.m4a"
	mergeDirPrefix   = "vixsrc-merge-"
)

// ResolveFunc resolves the playlist URL for one language of a task.
type ResolveFunc func(language string) (string, error)

// AudioTrack is one secondary audio input of a merge.
type AudioTrack struct {
	Path     string
	Language string
}

// RunMultiLanguage downloads one full video+audio stream for the primary
// language plus audio-only streams for each secondary language, then
// combines them into a single output file. Secondary failures shrink the
// merge set with a warning; only a primary failure is fatal. The
// task-private working directory is removed whichever step fails.
func (e *Executor) RunMultiLanguage(ctx context.Context, resolve ResolveFunc, output, quality string, languages []string, tracker *progress.Tracker) error {
	primary := languages[0]

	// Resolve one playlist URL per language up front.
	primaryURL, err := resolve(primary)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrPrimaryLanguage, primary, err)
	}

	type resolved struct {
		language string
		url      string
	}
	var secondaries []resolved
	for _, lang := range languages[1:] {
		url, err := resolve(lang)
		if err != nil {
			e.logf("skipping language %s: %v", lang, err)
			continue
		}
		secondaries = append(secondaries, resolved{language: lang, url: url})
	}

	workDir, err := makeWorkDir()
	if err != nil {
		return fmt.Errorf("create merge dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	primaryPath := filepath.Join(workDir, primaryFileName)
	if err := e.Run(ctx, primaryURL, primaryPath, quality, primary, tracker); err != nil {
		return fmt.Errorf("download primary %s: %w", primary, err)
	}

	var tracks []AudioTrack
	for _, sec := range secondaries {
		audioPath := filepath.Join(workDir, fmt.Sprintf(audioFilePattern, sec.language))
		if err := e.RunAudioOnly(ctx, sec.url, audioPath, tracker); err != nil {
			e.logf("audio download failed for %s, dropping from merge: %v", sec.language, err)
			continue
		}
		tracks = append(tracks, AudioTrack{Path: audioPath, Language: sec.language})
	}

	// Single survivor: nothing to merge, move it into place.
	if len(tracks) == 0 {
		if err := platform.MoveFile(primaryPath, output); err != nil {
			return fmt.Errorf("move output: %w", err)
		}
		e.ReportOutput(output)
		return nil
	}

	args := BuildMergeArgs(primaryPath, primary, tracks, output)
	if err := e.execute(ctx, FfmpegCommand, args, progress.NewFfmpegParser(tracker)); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	e.ReportOutput(output)
	return nil
}

// BuildMergeArgs builds the single ffmpeg invocation combining one
// video input with N audio inputs: explicit stream maps, codec copy,
// exactly one default audio disposition (the primary) and per-track
// language/title metadata.
func BuildMergeArgs(videoPath, primaryLanguage string, tracks []AudioTrack, output string) []string {
	args := []string{"-y", "-i", videoPath}
	for _, t := range tracks {
		args = append(args, "-i", t.Path)
	}

	args = append(args, "-map", "0:v:0", "-map", "0:a:0")
	for i := range tracks {
		args = append(args, "-map", fmt.Sprintf("%d:a:0", i+1))
	}

	args = append(args, "-c", "copy")

	args = append(args, "-disposition:a:0", "default")
	for i := range tracks {
		args = append(args, fmt.Sprintf("-disposition:a:%d", i+1), "0")
	}

	args = append(args,
		"-metadata:s:a:0", "language="+primaryLanguage,
		"-metadata:s:a:0", "title="+LanguageTitle(primaryLanguage),
	)
	for i, t := range tracks {
		args = append(args,
			fmt.Sprintf("-metadata:s:a:%d", i+1), "language="+t.Language,
			fmt.Sprintf("-metadata:s:a:%d", i+1), "title="+LanguageTitle(t.Language),
		)
	}

	return append(args, output)
}

// makeWorkDir creates a task-private temporary directory. UUID v7 keeps
// concurrent merge dirs unique and chronologically sortable.
func makeWorkDir() (string, error) {
	name := mergeDirPrefix
	if id, err := uuid.NewV7(); err == nil {
		name += id.String()
	} else {
		name += fmt.Sprintf("%d", time.Now().UnixNano())
	}
	dir := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
