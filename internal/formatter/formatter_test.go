package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/cloudmirror/sharesync/internal/models"
)

func sampleTasks() []*models.Task {
	total := 24
	now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	first := models.NewTask("Show One", "acct-1", "share-1", "", "dest-1")
	first.SetID("id-1")
	first.Status = models.StatusProcessing
	first.CurrentEpisodes = 7
	first.TotalEpisodes = &total
	first.LastCheckAt = &now

	second := models.NewTask("Show Two", "acct-1", "share-2", "", "dest-2")
	second.SetID("id-2")
	second.Status = models.StatusFailed
	second.RetryCount = 3
	second.LastError = "share link expired"

	return []*models.Task{first, second}
}

func TestTasksToCSV(t *testing.T) {
	data, err := TasksToCSV(sampleTasks())
	if err != nil {
		t.Fatalf("failed to format CSV: %v", err)
	}

	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID,Name,Status") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "7/24") {
		t.Errorf("episodes column missing: %s", lines[1])
	}
	if !strings.Contains(lines[2], "share link expired") {
		t.Errorf("error column missing: %s", lines[2])
	}
	if !strings.Contains(lines[2], "?") {
		t.Errorf("unknown total must render as ?, got %s", lines[2])
	}
}

func TestTasksToMarkdown(t *testing.T) {
	out := string(TasksToMarkdown(sampleTasks()))

	if !strings.Contains(out, "| Name | Status |") {
		t.Errorf("missing markdown header: %s", out)
	}
	if !strings.Contains(out, "| Show One | processing | 7/24 |") {
		t.Errorf("missing first row: %s", out)
	}
	if !strings.Contains(out, "never") {
		t.Errorf("unchecked task must render never: %s", out)
	}
}

func TestTasksToText(t *testing.T) {
	out := string(TasksToText(sampleTasks()))

	if !strings.Contains(out, "id-1") || !strings.Contains(out, "Show One") {
		t.Errorf("missing task line: %s", out)
	}
	if !strings.Contains(out, "share link expired") {
		t.Errorf("failed task must show its error: %s", out)
	}

	if empty := string(TasksToText(nil)); empty != "" {
		t.Errorf("no tasks must render nothing, got %q", empty)
	}
}
