// package formatter exports clone job lists to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/desertthunder/driveclone/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias ("markdown", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (csv, md, txt, json)", shared.ErrInvalidArgument, s)
	}
}

// Export encodes jobs in format.
func Export(jobs []models.CloneJob, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(jobs)
	case FormatMarkdown:
		return ExportToMarkdown(jobs, "Clone jobs")
	case FormatJSON:
		return shared.MarshalJSON(jobs, true)
	case FormatText:
		return ExportToText(jobs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts jobs to CSV with columns: ID, Name, Type, Status, Progress, Error Code, Error, Source, Updated
func ExportToCSV(jobs []models.CloneJob) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Type", "Status", "Progress", "Error Code", "Error", "Source", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range jobs {
		record := []string{
			job.ID,
			job.FileName,
			string(job.FileType),
			string(job.Status),
			strconv.Itoa(job.Progress),
			job.ErrorCode,
			job.Error,
			job.SourceURL,
			formatTime(job.UpdatedAt),
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

// ExportToMarkdown renders a status summary followed by a job table.
func ExportToMarkdown(jobs []models.CloneJob, title string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Jobs**: %d\n", len(jobs))
	fmt.Fprintf(&buf, "**Summary**: %s\n\n", Summary(jobs))

	if len(jobs) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Name | Type | Status | Progress | Source |\n")
	buf.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for i, job := range jobs {
		status := string(job.Status)
		if job.ErrorCode != "" {
			status = fmt.Sprintf("%s (%s)", status, job.ErrorCode)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %d%% | <%s> |\n",
			i+1, escapeCell(job.FileName), job.FileType, status, job.Progress, job.SourceURL)
	}

	return buf.Bytes(), nil
}

// ExportToText converts jobs to a numbered plain text list.
func ExportToText(jobs []models.CloneJob) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Jobs: %d (%s)\n\n", len(jobs), Summary(jobs))

	for i, job := range jobs {
		fmt.Fprintf(&buf, "%d. %s [%s] %s\n", i+1, job.FileName, job.FileType, ProgressBar(job.Progress, 20))
		fmt.Fprintf(&buf, "   Status: %s\n", job.Status)
		if job.Error != "" {
			fmt.Fprintf(&buf, "   Error: %s (%s)\n", job.Error, job.ErrorCode)
		}
		fmt.Fprintf(&buf, "   ID: %s\n", job.ID)
		fmt.Fprintf(&buf, "   Source: %s\n", job.SourceURL)
	}

	return buf.Bytes(), nil
}

// WriteExport encodes jobs and writes them to path.
//
// Defaults to driveclone_jobs.{format} as the filename.
func WriteExport(jobs []models.CloneJob, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("driveclone_jobs.%s", format)
	}

	data, err := Export(jobs, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Summary counts jobs per status in lifecycle order, omitting empty statuses, e.g. "2 queued, 1 failed".
func Summary(jobs []models.CloneJob) string {
	if len(jobs) == 0 {
		return "no jobs"
	}

	counts := make(map[models.JobStatus]int, len(models.Statuses))
	for _, job := range jobs {
		counts[job.Status]++
	}

	parts := make([]string, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	return strings.Join(parts, ", ")
}

// ProgressBar renders progress as a fixed-width bar, e.g. "[#####.....]  50%".
func ProgressBar(progress, width int) string {
	progress = max(0, min(100, progress))
	filled := progress * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", width-filled), progress)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
