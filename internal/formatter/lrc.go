package formatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
)

// placeholder shown for timed lines with no text (instrumental breaks)
const emptyVerse = "..."

// wordTag matches enhanced LRC per-word timestamps like <00:12.34>.
var wordTag = regexp.MustCompile(`<\d{1,2}:\d{2}(?:[.:]\d{1,3})?>`)

// ParseLRC parses LRC text into a synced [models.Transcript].
//
// Supported timestamp forms are [mm:ss], [mm:ss.xx], [mm:ss:xx], [mm:ss.xxx] and [hh:mm:ss.xx], repeated on one line
// when the same verse is sung more than once. ID tags such as [ar:...] are skipped and [offset:±ms] shifts every line.
// Lines that cannot be parsed are dropped and counted; when nothing survives the result is [models.NoLyrics].
func ParseLRC(raw string) (models.Transcript, int) {
	var (
		lines   []models.LyricLine
		dropped int
		offset  time.Duration
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		stamps, text, tag, ok := splitTags(line)
		if !ok {
			dropped++
			continue
		}

		if tag != "" {
			if key, value, _ := strings.Cut(tag, ":"); strings.EqualFold(key, "offset") {
				if ms, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
					offset = time.Duration(ms) * time.Millisecond
				}
			}
			continue
		}

		text = strings.TrimSpace(wordTag.ReplaceAllString(text, ""))
		if text == "" {
			text = emptyVerse
		}

		for _, ts := range stamps {
			lines = append(lines, models.LyricLine{Start: ts, Text: text})
		}
	}

	// a positive offset means lyrics appear sooner
	if offset != 0 {
		for i := range lines {
			lines[i].Start -= offset
			if lines[i].Start < 0 {
				lines[i].Start = 0
			}
		}
	}

	return models.NewTranscript(lines), dropped
}

// splitTags consumes the leading [..] groups of line.
//
// It returns the parsed timestamps and remaining text, or the content of an ID tag when the line is metadata.
// ok is false for malformed lines.
func splitTags(line string) (stamps []time.Duration, text, tag string, ok bool) {
	rest := line
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			if len(stamps) > 0 {
				break
			}
			return nil, "", "", false
		}
		content := rest[1:end]

		if ts, err := ParseTimestamp(content); err == nil {
			stamps = append(stamps, ts)
			rest = rest[end+1:]
			continue
		}

		// after a timestamp, other bracket groups such as [Chorus] are verse text
		if len(stamps) > 0 {
			break
		}
		if isIDTag(content) {
			return nil, "", content, true
		}
		return nil, "", "", false
	}

	if len(stamps) == 0 {
		return nil, "", "", false
	}
	return stamps, rest, "", true
}

// isIDTag reports whether s looks like key:value with an alphabetic key.
func isIDTag(s string) bool {
	key, _, found := strings.Cut(s, ":")
	if !found || key == "" {
		return false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && r != '#' {
			return false
		}
	}
	return true
}

// ParseTimestamp parses an LRC time tag body such as "01:02.50", "01:02:50" or "1:02:03.5".
//
// Three colon-separated parts ending in exactly two digits are minutes, seconds and hundredths.
func ParseTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var hours, minutes int
	var err error
	if len(parts) == 3 {
		// mm:ss:xx uses a colon before the hundredths
		if last := parts[2]; len(last) == 2 && !strings.Contains(last, ".") {
			parts = []string{parts[0], parts[1] + "." + last}
		} else {
			if hours, err = atoiStrict(parts[0]); err != nil {
				return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
			}
			parts = parts[1:]
		}
	}

	if minutes, err = atoiStrict(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
	}

	secPart, fracPart, _ := strings.Cut(parts[1], ".")
	seconds, err := atoiStrict(secPart)
	if err != nil || seconds >= 60 {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}

	var frac time.Duration
	if fracPart != "" {
		if len(fracPart) > 3 {
			return 0, fmt.Errorf("invalid fraction in %q", s)
		}
		n, err := atoiStrict(fracPart)
		if err != nil {
			return 0, fmt.Errorf("invalid fraction in %q: %w", s, err)
		}
		for i := len(fracPart); i < 3; i++ {
			n *= 10
		}
		frac = time.Duration(n) * time.Millisecond
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second + frac, nil
}

func atoiStrict(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}
