package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stormino/vixsrc-downloader/internal/batch"
	"github.com/stormino/vixsrc-downloader/internal/client"
	"github.com/stormino/vixsrc-downloader/internal/config"
	"github.com/stormino/vixsrc-downloader/internal/download"
	"github.com/stormino/vixsrc-downloader/internal/extractor"
	"github.com/stormino/vixsrc-downloader/internal/metadata"
	"github.com/stormino/vixsrc-downloader/internal/model"
	"github.com/stormino/vixsrc-downloader/internal/progress"
)

func main() {
	os.Exit(run())
}

type options struct {
	movieID   int
	tvID      int
	season    int
	episode   int
	batchFile string

	output     string
	outputDir  string
	quality    string
	languages  string
	urlOnly    bool
	noMetadata bool
	quiet      bool

	configPath string
	tmdbAPIKey string

	timeout         int
	parallel        int
	fragConcurrency int
}

func run() int {
	var opts options
	flag.IntVar(&opts.movieID, "movie", 0, "download a movie by catalog ID")
	flag.IntVar(&opts.tvID, "tv", 0, "download TV content by show catalog ID")
	flag.IntVar(&opts.season, "season", 0, "season number (with -tv; 0 means all seasons)")
	flag.IntVar(&opts.episode, "episode", 0, "episode number (with -tv and -season; 0 means all episodes)")
	flag.StringVar(&opts.batchFile, "batch", "", "batch file with one task per line")
	flag.StringVar(&opts.output, "output", "", "explicit output file path")
	flag.StringVar(&opts.outputDir, "output-dir", ".", "directory for derived output paths")
	flag.StringVar(&opts.quality, "quality", "", "quality ceiling: best or a vertical resolution like 720")
	flag.StringVar(&opts.languages, "lang", "", "audio language, or a comma-separated list to merge")
	flag.BoolVar(&opts.urlOnly, "url-only", false, "print resolved playlist URLs without downloading")
	flag.BoolVar(&opts.noMetadata, "no-metadata", false, "skip TMDB lookups, name files by catalog ID")
	flag.BoolVar(&opts.quiet, "quiet", false, "suppress informational logging")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file path")
	flag.StringVar(&opts.tmdbAPIKey, "tmdb-api-key", "", "TMDB API key (overrides config and environment)")
	flag.IntVar(&opts.timeout, "timeout", 0, "HTTP request timeout in seconds")
	flag.IntVar(&opts.parallel, "parallel", 0, "number of tasks downloaded concurrently")
	flag.IntVar(&opts.fragConcurrency, "ytdlp-concurrency", 0, "yt-dlp fragment download concurrency")
	flag.Parse()

	log.SetFlags(0)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	applyOverrides(cfg, &opts)

	tasks, err := buildTasks(cfg, &opts)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	if len(tasks) == 0 {
		log.Printf("nothing to download")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, sinks := buildPipeline(cfg, &opts, len(tasks))
	orch := batch.NewOrchestrator(pipeline, sinks, cfg.Parallel)

	start := time.Now()
	result := orch.Run(ctx, tasks)

	if !opts.urlOnly && !opts.quiet {
		log.Printf("finished in %s: %d succeeded, %d failed", time.Since(start).Round(time.Second), result.Success, result.Failed)
	}
	if !result.AllSucceeded() {
		return 1
	}
	return 0
}

// applyOverrides layers CLI flags over file and environment values.
func applyOverrides(cfg *config.Config, opts *options) {
	if opts.quality != "" {
		cfg.Quality = opts.quality
	}
	if opts.tmdbAPIKey != "" {
		cfg.TMDBAPIKey = opts.tmdbAPIKey
	}
	if opts.timeout > 0 {
		cfg.TimeoutSec = opts.timeout
	}
	if opts.parallel > 0 {
		cfg.Parallel = opts.parallel
	}
	if opts.fragConcurrency > 0 {
		cfg.FragConcurrency = opts.fragConcurrency
	}
	if opts.noMetadata {
		cfg.TMDBAPIKey = ""
	}
}

// buildTasks turns the selected mode (movie, tv, batch) into a task
// list. Exactly one mode must be chosen.
func buildTasks(cfg *config.Config, opts *options) ([]*model.DownloadTask, error) {
	modes := 0
	for _, on := range []bool{opts.movieID > 0, opts.tvID > 0, opts.batchFile != ""} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		return nil, fmt.Errorf("choose exactly one of -movie, -tv or -batch")
	}
	if opts.episode > 0 && opts.season == 0 {
		return nil, fmt.Errorf("-episode requires -season")
	}

	languages := []string{cfg.Language}
	if opts.languages != "" {
		languages = batch.ParseLanguages(opts.languages)
		if len(languages) == 0 {
			return nil, fmt.Errorf("invalid -lang value %q", opts.languages)
		}
	}

	switch {
	case opts.movieID > 0:
		task := &model.DownloadTask{
			Kind:       model.ContentMovie,
			RemoteID:   opts.movieID,
			Languages:  languages,
			Quality:    cfg.Quality,
			OutputFile: opts.output,
		}
		if err := task.Validate(); err != nil {
			return nil, err
		}
		return []*model.DownloadTask{task}, nil

	case opts.tvID > 0:
		provider := newProvider(cfg, opts)
		tasks, err := batch.ExpandShow(provider, opts.tvID, opts.season, opts.episode, languages, cfg.Quality)
		if err != nil {
			return nil, err
		}
		if len(tasks) == 1 {
			tasks[0].OutputFile = opts.output
		}
		return tasks, nil

	default:
		tasks, skipped, err := batch.ParseFile(opts.batchFile, batch.Defaults{
			Language: cfg.Language,
			Quality:  cfg.Quality,
		})
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			log.Printf("skipped %d malformed batch line(s)", skipped)
		}
		return tasks, nil
	}
}

// buildPipeline wires the HTTP client, extractor, executor and metadata
// provider, and picks the progress surface: a live bar for a single
// task, serialized step rows for a batch, nothing when quiet.
func buildPipeline(cfg *config.Config, opts *options, taskCount int) (*batch.Pipeline, batch.SinkFactory) {
	httpClient := client.New(client.Config{
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.UserAgent,
		Referer:   cfg.BaseURL,
	})

	pipeline := &batch.Pipeline{
		Extractor: extractor.New(httpClient, cfg.BaseURL, opts.quiet),
		Executor:  download.NewExecutor(cfg.BaseURL, cfg.FragConcurrency, cfg.CommandTimeout(), opts.quiet),
		Metadata:  newProvider(cfg, opts),
		OutputDir: opts.outputDir,
		URLOnly:   opts.urlOnly,
	}

	var sinks batch.SinkFactory
	switch {
	case opts.quiet || opts.urlOnly:
		sinks = func(string) progress.Sink { return progress.NopSink{} }
	case taskCount == 1 && cfg.Parallel == 1:
		sinks = func(description string) progress.Sink {
			return progress.NewBarSink(os.Stderr, description)
		}
	default:
		display := progress.NewDisplay(os.Stderr)
		sinks = func(description string) progress.Sink {
			return display.NewRow(description)
		}
	}
	return pipeline, sinks
}

func newProvider(cfg *config.Config, opts *options) metadata.Provider {
	if opts.noMetadata {
		return metadata.New("", client.New(client.Config{Timeout: cfg.Timeout()}))
	}
	return metadata.New(cfg.TMDBAPIKey, client.New(client.Config{Timeout: cfg.Timeout()}))
}
