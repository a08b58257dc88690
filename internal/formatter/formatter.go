// package formatter renders task status reports in various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudmirror/sharesync/internal/models"
)

func episodes(task *models.Task) string {
	if task.TotalEpisodes == nil {
		return fmt.Sprintf("%d/?", task.CurrentEpisodes)
	}
	return fmt.Sprintf("%d/%d", task.CurrentEpisodes, *task.TotalEpisodes)
}

func checkedAt(task *models.Task) string {
	if task.LastCheckAt == nil {
		return "never"
	}
	return task.LastCheckAt.Format(time.DateTime)
}

// TasksToCSV converts tasks to CSV with columns: ID, Name, Status, Episodes, Retries, LastCheck, LastError
func TasksToCSV(tasks []*models.Task) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Status", "Episodes", "Retries", "LastCheck", "LastError"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range tasks {
		record := []string{
			task.ID(),
			task.Name,
			string(task.Status),
			episodes(task),
			strconv.Itoa(task.RetryCount),
			checkedAt(task),
			task.LastError,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// TasksToMarkdown converts tasks to a Markdown table.
func TasksToMarkdown(tasks []*models.Task) []byte {
	var buf bytes.Buffer

	buf.WriteString("| Name | Status | Episodes | Retries | Last Check |\n")
	buf.WriteString("| --- | --- | --- | --- | --- |\n")

	for _, task := range tasks {
		fmt.Fprintf(&buf, "| %s | %s | %s | %d | %s |\n",
			task.Name,
			task.Status,
			episodes(task),
			task.RetryCount,
			checkedAt(task),
		)
	}

	return buf.Bytes()
}

// TasksToText converts tasks to an aligned plain-text listing.
func TasksToText(tasks []*models.Task) []byte {
	var buf bytes.Buffer

	for _, task := range tasks {
		fmt.Fprintf(&buf, "%-36s  %-10s  %-8s  %s\n", task.ID(), task.Status, episodes(task), task.Name)
		if task.LastError != "" {
			fmt.Fprintf(&buf, "%38s%s\n", "", strings.TrimSpace(task.LastError))
		}
	}

	return buf.Bytes()
}
