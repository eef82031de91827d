package batch

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/stormino/vixsrc-downloader/internal/model"
)

// Batch file tokens
const (
	// Placeholder marks an optional column as "use the default".
	Placeholder = "-"

	commentPrefix = "#"
)

// Defaults supplies per-task fallbacks for optional batch columns.
type Defaults struct {
	Language string
	Quality  string
}

// ParseFile reads a batch file: one whitespace-separated record per
// line, `tv ID SEASON EPISODE [OUT] [LANG] [QUALITY]` or `movie ID
// [OUT] [LANG] [QUALITY]`. LANG may be a comma-separated list to
// request a multi-language merge. Blank lines and #-comments are
// ignored; malformed lines are skipped with a warning and counted, they
// never abort the batch.
func ParseFile(path string, defaults Defaults) ([]*model.DownloadTask, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	var tasks []*model.DownloadTask
	skipped := 0

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		task, err := parseLine(line, defaults)
		if err != nil {
			log.Printf("[batch] skipping line %d: %v", lineNo, err)
			skipped++
			continue
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read batch file: %w", err)
	}

	return tasks, skipped, nil
}

// parseLine parses a single batch record.
func parseLine(line string, defaults Defaults) (*model.DownloadTask, error) {
	fields := strings.Fields(line)

	task := &model.DownloadTask{
		Languages: []string{defaults.Language},
		Quality:   defaults.Quality,
	}

	var optional []string
	switch model.ContentKind(fields[0]) {
	case model.ContentEpisode:
		if len(fields) < 4 {
			return nil, fmt.Errorf("tv record needs id, season and episode: %q", line)
		}
		task.Kind = model.ContentEpisode
		var err error
		if task.RemoteID, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("bad tv id %q", fields[1])
		}
		if task.Season, err = strconv.Atoi(fields[2]); err != nil {
			return nil, fmt.Errorf("bad season %q", fields[2])
		}
		if task.Episode, err = strconv.Atoi(fields[3]); err != nil {
			return nil, fmt.Errorf("bad episode %q", fields[3])
		}
		optional = fields[4:]
	case model.ContentMovie:
		if len(fields) < 2 {
			return nil, fmt.Errorf("movie record needs an id: %q", line)
		}
		task.Kind = model.ContentMovie
		var err error
		if task.RemoteID, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("bad movie id %q", fields[1])
		}
		optional = fields[2:]
	default:
		return nil, fmt.Errorf("unknown record type %q", fields[0])
	}

	if len(optional) > 0 && optional[0] != Placeholder {
		task.OutputFile = optional[0]
	}
	if len(optional) > 1 && optional[1] != Placeholder {
		task.Languages = ParseLanguages(optional[1])
	}
	if len(optional) > 2 && optional[2] != Placeholder {
		task.Quality = optional[2]
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// ParseLanguages splits a comma-separated language list, dropping empty
// entries.
func ParseLanguages(value string) []string {
	var languages []string
	for _, lang := range strings.Split(value, ",") {
		lang = strings.TrimSpace(lang)
		if lang != "" {
			languages = append(languages, lang)
		}
	}
	return languages
}
