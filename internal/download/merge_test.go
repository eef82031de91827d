package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stormino/vixsrc-downloader/internal/errs"
	"github.com/stormino/vixsrc-downloader/internal/progress"
)

func TestRunMultiLanguagePrimaryFailureIsFatal(t *testing.T) {
	e := NewExecutor("https://vixsrc.to", 5, 0, true)
	tracker := progress.NewTracker(progress.NopSink{})

	resolve := func(language string) (string, error) {
		return "", errors.New("no playlist")
	}

	err := e.RunMultiLanguage(context.Background(), resolve, "out.mp4", "best", []string{"en", "it"}, tracker)
	if !errors.Is(err, errs.ErrPrimaryLanguage) {
		t.Fatalf("err = %v, want ErrPrimaryLanguage", err)
	}
}

func TestRunMultiLanguageResolvesEveryLanguage(t *testing.T) {
	e := NewExecutor("https://vixsrc.to", 5, 0, true)
	tracker := progress.NewTracker(progress.NopSink{})

	var resolved []string
	resolve := func(language string) (string, error) {
		resolved = append(resolved, language)
		if language == "en" {
			return "", errors.New("primary down")
		}
		return "https://cdn.example/" + language + ".m3u8", nil
	}

	// The primary failure aborts before any download, but the call order
	// is still primary first.
	_ = e.RunMultiLanguage(context.Background(), resolve, "out.mp4", "best", []string{"en", "it", "fr"}, tracker)

	if len(resolved) != 1 || resolved[0] != "en" {
		t.Errorf("resolved = %v, want primary language first and nothing after its failure", resolved)
	}
}

// installStubYtdlp puts a fake yt-dlp on a test-scoped PATH. The stub
// creates whatever file follows -o and reports full progress, so merge
// paths can run without the real downloader.
func installStubYtdlp(t *testing.T) {
	t.Helper()
	binDir := t.TempDir()
	script := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
	if [ "$prev" = "-o" ]; then out="$a"; fi
	prev="$a"
done
if [ -n "$out" ]; then : > "$out"; fi
echo 'PROGRESS: 100.0%'
`
	if err := os.WriteFile(filepath.Join(binDir, "yt-dlp"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)
}

func TestRunMultiLanguageSecondaryFailureYieldsSingleTrack(t *testing.T) {
	installStubYtdlp(t)

	e := NewExecutor("https://vixsrc.to", 5, 0, true)
	tracker := progress.NewTracker(progress.NopSink{})
	output := filepath.Join(t.TempDir(), "movie.mp4")

	resolve := func(language string) (string, error) {
		if language == "it" {
			return "", errors.New("no playlist for it")
		}
		return "https://cdn.example/" + language + ".m3u8", nil
	}

	err := e.RunMultiLanguage(context.Background(), resolve, output, "best", []string{"en", "it"}, tracker)
	if err != nil {
		t.Fatalf("RunMultiLanguage() error = %v, a secondary failure must not fail the task", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("single-track output not in place: %v", err)
	}
	if got := tracker.LastPercent(); got != 100 {
		t.Errorf("LastPercent() = %v, want 100", got)
	}
}

func TestMakeWorkDir(t *testing.T) {
	first, err := makeWorkDir()
	if err != nil {
		t.Fatalf("makeWorkDir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(first) })

	second, err := makeWorkDir()
	if err != nil {
		t.Fatalf("makeWorkDir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(second) })

	if first == second {
		t.Error("work dirs must be unique per task")
	}
	if !strings.HasPrefix(filepath.Base(first), mergeDirPrefix) {
		t.Errorf("work dir %q missing prefix %q", first, mergeDirPrefix)
	}
}
