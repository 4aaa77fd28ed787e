// package formatter exports transfer reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
)

// Format selects a report encoding.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
)

// Report describes one finished transfer.
type Report struct {
	Direction    string // "spotify → youtube" or the reverse
	SourceID     string
	PlaylistName string
	Result       *models.TransferResult
}

// FormatFromPath picks a [Format] from the file extension. Unknown extensions are plain text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV
	case ".md", ".markdown":
		return Markdown
	default:
		return Text
	}
}

// ReportToCSV writes one row per failed item with columns: Index, Title, Artists
func ReportToCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artists"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range r.Result.FailedItems {
		record := []string{strconv.Itoa(i + 1), item.Title, strings.Join(item.Artists, "; ")}
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

// ReportToMarkdown renders the summary and the failed items as a Markdown document.
func ReportToMarkdown(r Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", r.PlaylistName))
	if r.Direction != "" {
		buf.WriteString(fmt.Sprintf("**Direction**: %s\n\n", r.Direction))
	}
	buf.WriteString(fmt.Sprintf("**Source**: %s\n", r.SourceID))
	buf.WriteString(fmt.Sprintf("**Created**: %s\n", r.Result.CreatedPlaylistID))
	buf.WriteString(fmt.Sprintf("**Transferred**: %d/%d\n\n", r.Result.SucceededCount, r.Result.TotalSourceItems))

	if len(r.Result.FailedItems) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("## Failed\n\n")
	for i, item := range r.Result.FailedItems {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, itemLine(item)))
	}

	return buf.Bytes(), nil
}

// ReportToText renders the report as plain text.
func ReportToText(r Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", r.PlaylistName))
	buf.WriteString(fmt.Sprintf("Created: %s\n", r.Result.CreatedPlaylistID))
	buf.WriteString(fmt.Sprintf("Transferred: %d/%d\n\n", r.Result.SucceededCount, r.Result.TotalSourceItems))

	for i, item := range r.Result.FailedItems {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, itemLine(item)))
	}

	return buf.Bytes(), nil
}

// WriteReport encodes r in the format implied by path and writes it there.
func WriteReport(r Report, path string) (Format, error) {
	if path == "" {
		return "", fmt.Errorf("%w: report path", shared.ErrMissingArgument)
	}
	if r.Result == nil {
		return "", fmt.Errorf("%w: nil transfer result", shared.ErrInvalidInput)
	}

	format := FormatFromPath(path)

	var data []byte
	var err error
	switch format {
	case CSV:
		data, err = ReportToCSV(r)
	case Markdown:
		data, err = ReportToMarkdown(r)
	default:
		data, err = ReportToText(r)
	}
	if err != nil {
		return format, fmt.Errorf("failed to generate %s report: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return format, fmt.Errorf("failed to write report file: %w", err)
	}
	return format, nil
}

func itemLine(item models.FailedItem) string {
	if len(item.Artists) == 0 {
		return item.Title
	}
	return fmt.Sprintf("%s - %s", strings.Join(item.Artists, ", "), item.Title)
}
