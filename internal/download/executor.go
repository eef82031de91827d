package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/dustin/go-humanize"

	"github.com/stormino/vixsrc-downloader/internal/errs"
	"github.com/stormino/vixsrc-downloader/internal/progress"
)

// Executable and argument constants
const (
	YtdlpCommand  = "yt-dlp"
	FfmpegCommand = "ffmpeg"

	MergeOutputFormat = "mp4"
	AcceptHeader      = "Accept: */*"

	// ProgressTemplate makes yt-dlp emit a stable PROGRESS:<percent>%
	// marker per line; its default human-readable progress output is not
	// a stable parsing target across versions.
	ProgressTemplate = "download:PROGRESS:%(progress._percent_str)s"

	// FormatBestAudio restricts selection to audio for secondary
	// language downloads; the language filter is already baked into the
	// upstream playlist.
	FormatBestAudio = "bestaudio/best"
)

// Executor builds and runs the external downloader against playlist
// URLs, streaming subprocess output through a progress parser.
type Executor struct {
	baseURL         string
	fragConcurrency int
	commandTimeout  time.Duration
	quiet           bool

	probeOnce sync.Once
	hasYtdlp  bool
	hasFfmpeg bool
}

// NewExecutor creates an executor. commandTimeout bounds each child
// process; zero disables the bound.
func NewExecutor(baseURL string, fragConcurrency int, commandTimeout time.Duration, quiet bool) *Executor {
	return &Executor{
		baseURL:         baseURL,
		fragConcurrency: fragConcurrency,
		commandTimeout:  commandTimeout,
		quiet:           quiet,
	}
}

// BuildFormatSelector returns the yt-dlp format preference chain for the
// requested quality ceiling and audio language. The chain degrades
// gracefully: preferred combination first, then any audio, then an
// overall best-effort selection.
func BuildFormatSelector(quality, language string) string {
	if _, err := strconv.Atoi(quality); err == nil {
		return fmt.Sprintf(
			"bestvideo[height<=%[1]s]+bestaudio[language=%[2]s]/"+
				"bestvideo[height<=%[1]s]+bestaudio/best[height<=%[1]s]",
			quality, language)
	}
	return fmt.Sprintf(
		"bestvideo+bestaudio[language=%[1]s]/bestvideo+bestaudio/best",
		language)
}

// BuildYtdlpArgs builds the yt-dlp invocation for one playlist URL.
func (e *Executor) BuildYtdlpArgs(url, output, formatSelector string) []string {
	return []string{
		"-N", strconv.Itoa(e.fragConcurrency),
		"-f", formatSelector,
		"--merge-output-format", MergeOutputFormat,
		"--referer", e.baseURL,
		"--add-header", AcceptHeader,
		"-o", output,
		"--newline",
		"--no-warnings",
		"--progress-template", ProgressTemplate,
		url,
	}
}

// Run downloads a playlist URL to the output path, streaming progress to
// the tracker. yt-dlp is preferred; when it is absent, ffmpeg performs a
// direct codec-copy of the HLS stream. Partial output files are left in
// place on failure for inspection and external resumability.
func (e *Executor) Run(ctx context.Context, url, output, quality, language string, tracker *progress.Tracker) error {
	e.probe()

	switch {
	case e.hasYtdlp:
		args := e.BuildYtdlpArgs(url, output, BuildFormatSelector(quality, language))
		return e.execute(ctx, YtdlpCommand, args, progress.NewYtdlpParser(tracker))
	case e.hasFfmpeg:
		args := e.buildFfmpegDirectArgs(url, output)
		return e.execute(ctx, FfmpegCommand, args, progress.NewFfmpegParser(tracker))
	default:
		return errs.ErrNoDownloader
	}
}

// RunAudioOnly downloads only the best audio track of a playlist URL,
// used for secondary languages of a multi-language merge.
func (e *Executor) RunAudioOnly(ctx context.Context, url, output string, tracker *progress.Tracker) error {
	e.probe()
	if !e.hasYtdlp {
		return errs.ErrNoDownloader
	}
	args := e.BuildYtdlpArgs(url, output, FormatBestAudio)
	return e.execute(ctx, YtdlpCommand, args, progress.NewYtdlpParser(tracker))
}

// buildFfmpegDirectArgs is the fallback invocation when yt-dlp is not
// installed: remux the HLS stream without re-encoding.
func (e *Executor) buildFfmpegDirectArgs(url, output string) []string {
	return []string{
		"-i", url,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-y",
		output,
	}
}

// execute runs a child process with line-oriented combined output,
// feeding every line through the selected parser.
func (e *Executor) execute(ctx context.Context, name string, args []string, parser progress.LineParser) error {
	if e.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	e.logf("running: %s", shellescape.QuoteCommand(append([]string{name}, args...)))

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("start %s: %w", name, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				parser.ParseLine(line)
			}
		}
	}()

	err := cmd.Wait()
	pw.Close()
	<-done

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ReportOutput logs the final size of a completed download.
func (e *Executor) ReportOutput(output string) {
	if fi, err := os.Stat(output); err == nil {
		e.logf("completed %s (%s)", output, humanize.Bytes(uint64(fi.Size())))
	}
}

// probe checks command availability once per process by attempting a
// version query.
func (e *Executor) probe() {
	e.probeOnce.Do(func() {
		e.hasYtdlp = commandAvailable(YtdlpCommand, "--version")
		e.hasFfmpeg = commandAvailable(FfmpegCommand, "-version")
		if !e.hasYtdlp && !e.hasFfmpeg {
			e.logf("neither yt-dlp nor ffmpeg found on PATH")
		}
	})
}

func commandAvailable(name string, versionArg string) bool {
	cmd := exec.Command(name, versionArg)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.quiet {
		return
	}
	log.Printf("[download] "+format, args...)
}
