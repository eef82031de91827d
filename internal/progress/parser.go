package progress

import (
	"regexp"
	"strconv"
)

// Regex patterns for the two subprocess output grammars.
var (
	ytdlpProgressPattern = regexp.MustCompile(`PROGRESS:\s*(\d+\.?\d*)%`)
	durationPattern      = regexp.MustCompile(`Duration:\s*(\d{2}):(\d{2}):(\d{2}\.\d+)`)
	ffmpegTimePattern    = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d+)`)
	ffmpegBitratePattern = regexp.MustCompile(`(?i)bitrate=\s*(\d+\.?\d*)\s*([kmgt]?bits/s)`)
)

// LineParser consumes one line of child-process output and turns any
// recognized progress information into tracker updates. Each executor
// path selects its parser once; unrecognized lines are ignored.
type LineParser interface {
	ParseLine(line string)
}

// YtdlpParser recognizes the stable PROGRESS:<percent>% marker emitted
// by the custom yt-dlp progress template.
type YtdlpParser struct {
	tracker *Tracker
}

// NewYtdlpParser creates a parser feeding the given tracker.
func NewYtdlpParser(tracker *Tracker) *YtdlpParser {
	return &YtdlpParser{tracker: tracker}
}

// ParseLine implements LineParser.
func (p *YtdlpParser) ParseLine(line string) {
	m := ytdlpProgressPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return
	}
	p.tracker.Update(percent)
}

// FfmpegParser recognizes the time-based transcoder grammar: one
// Duration: header, then repeated time=HH:MM:SS.ms lines with an
// optional bitrate. Progress lines seen before the duration header are
// ignored since no percentage can be derived.
type FfmpegParser struct {
	tracker       *Tracker
	totalDuration float64
}

// NewFfmpegParser creates a parser feeding the given tracker.
func NewFfmpegParser(tracker *Tracker) *FfmpegParser {
	return &FfmpegParser{tracker: tracker}
}

// ParseLine implements LineParser.
func (p *FfmpegParser) ParseLine(line string) {
	if p.totalDuration == 0 {
		if m := durationPattern.FindStringSubmatch(line); m != nil {
			p.totalDuration = hmsToSeconds(m[1], m[2], m[3])
			return
		}
	}

	m := ffmpegTimePattern.FindStringSubmatch(line)
	if m == nil || p.totalDuration == 0 {
		return
	}

	current := hmsToSeconds(m[1], m[2], m[3])
	percent := current / p.totalDuration * MaxPercent
	if percent > MaxPercent {
		percent = MaxPercent
	}

	bitrate := ""
	if bm := ffmpegBitratePattern.FindStringSubmatch(line); bm != nil {
		bitrate = bm[1] + bm[2]
	}

	p.tracker.UpdateWithBitrate(percent, bitrate)
}

// hmsToSeconds converts HH, MM and a fractional SS into seconds.
func hmsToSeconds(hh, mm, ss string) float64 {
	hours, _ := strconv.Atoi(hh)
	minutes, _ := strconv.Atoi(mm)
	seconds, _ := strconv.ParseFloat(ss, 64)
	return float64(hours)*3600 + float64(minutes)*60 + seconds
}
