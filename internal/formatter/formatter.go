// package formatter parses LRC lyric text and renders transcripts in several output formats (LRC, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/shared"
)

// Format enumerates the supported output formats.
type Format string

const (
	FormatText     Format = "text"
	FormatLRC      Format = "lrc"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Render renders a transcript for track in the requested format.
func Render(format Format, track models.Track, t models.Transcript) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ExportToText(t), nil
	case FormatLRC:
		return ExportToLRC(track, t), nil
	case FormatCSV:
		return ExportToCSV(t)
	case FormatMarkdown:
		return ExportToMarkdown(track, t), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToLRC writes t back out as LRC with ID tags for track. Untimed transcripts are written without timestamps.
func ExportToLRC(track models.Track, t models.Transcript) []byte {
	var buf bytes.Buffer

	if track.Title != "" {
		fmt.Fprintf(&buf, "[ti:%s]\n", track.Title)
	}
	if track.Artist != "" {
		fmt.Fprintf(&buf, "[ar:%s]\n", track.Artist)
	}
	if track.Album != "" {
		fmt.Fprintf(&buf, "[al:%s]\n", track.Album)
	}
	if track.Duration > 0 {
		fmt.Fprintf(&buf, "[length:%s]\n", shared.FormatDuration(track.Duration))
	}

	for _, line := range t.Lines {
		if t.Synced {
			fmt.Fprintf(&buf, "[%s]%s\n", shared.FormatTimestamp(line.Start), line.Text)
		} else {
			fmt.Fprintf(&buf, "%s\n", line.Text)
		}
	}

	return buf.Bytes()
}

// ExportToCSV converts a transcript to CSV with columns: Index, Start, StartMS, Text
func ExportToCSV(t models.Transcript) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Index", "Start", "StartMS", "Text"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, line := range t.Lines {
		record := []string{
			strconv.Itoa(i),
			shared.FormatTimestamp(line.Start),
			strconv.FormatInt(line.Start.Milliseconds(), 10),
			line.Text,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a transcript to Markdown with a track heading.
func ExportToMarkdown(track models.Track, t models.Transcript) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", track.Title)
	fmt.Fprintf(&buf, "**Artist**: %s\n", track.Artist)
	if track.Album != "" {
		fmt.Fprintf(&buf, "**Album**: %s\n", track.Album)
	}
	if track.Duration > 0 {
		fmt.Fprintf(&buf, "**Length**: %s\n", shared.FormatDuration(track.Duration))
	}
	buf.WriteString("\n## Lyrics\n\n")

	if t.Empty() {
		if t.Instrumental {
			buf.WriteString("_Instrumental_\n")
		} else {
			buf.WriteString("_No lyrics available_\n")
		}
		return buf.Bytes()
	}

	for _, line := range t.Lines {
		if t.Synced {
			fmt.Fprintf(&buf, "- `%s` %s\n", shared.FormatTimestamp(line.Start), line.Text)
		} else {
			fmt.Fprintf(&buf, "%s\n", line.Text)
		}
	}

	return buf.Bytes()
}

// ExportToText writes one line per lyric, without timestamps.
func ExportToText(t models.Transcript) []byte {
	var buf bytes.Buffer
	for _, line := range t.Lines {
		buf.WriteString(line.Text)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
