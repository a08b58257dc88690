package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/cloudmirror/sharesync/internal/formatter"
	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/shared"
	"github.com/cloudmirror/sharesync/internal/tasks"
)

// TasksAdd creates a synchronization task from the command flags.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.accounts.Get(cmd.String("account")); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, cmd.String("account"))
	}

	task := models.NewTask(
		cmd.String("name"),
		cmd.String("account"),
		cmd.String("share-id"),
		cmd.String("remote-folder"),
		cmd.String("dest-folder"),
	)
	task.DestFolderPath = cmd.String("dest-path")
	task.DestRootID = cmd.String("dest-root")
	task.MatchPattern = cmd.String("match-pattern")
	task.MatchValue = cmd.String("match-value")
	task.RenameSource = cmd.String("rename-source")
	task.RenameTarget = cmd.String("rename-target")

	if code := cmd.String("access-code"); code != "" {
		task.ShareMode = models.ShareModeAccessCode
		task.AccessCode = code
	}

	if total := int(cmd.Int("total-episodes")); total > 0 {
		task.TotalEpisodes = &total
	}

	if op := cmd.String("match-operator"); op != "" {
		task.MatchOperator = models.MatchOperator(op)
		if !task.MatchOperator.Valid() {
			return fmt.Errorf("%w: unknown match operator %q", shared.ErrInvalidFlag, op)
		}
	}

	if spec := cmd.String("cron"); spec != "" {
		task.EnableCron = true
		task.CronExpr = spec
	}

	if err := task.Validate(); err != nil {
		return err
	}

	if err := s.tasks.Create(task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	r.logger.Info("task created", "id", task.ID(), "name", task.Name)
	return r.writePlain("%s\n", task.ID())
}

// TasksList prints tasks in the requested format.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	criteria := map[string]any{}
	if status := cmd.String("status"); status != "" {
		if !models.TaskStatus(status).Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
		}
		criteria["status"] = status
	}

	list, err := s.tasks.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	switch cmd.String("format") {
	case "json":
		type row struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Status     string `json:"status"`
			Episodes   int    `json:"episodes"`
			RetryCount int    `json:"retry_count"`
			LastError  string `json:"last_error,omitempty"`
		}
		rows := make([]row, 0, len(list))
		for _, task := range list {
			rows = append(rows, row{
				ID:         task.ID(),
				Name:       task.Name,
				Status:     string(task.Status),
				Episodes:   task.CurrentEpisodes,
				RetryCount: task.RetryCount,
				LastError:  task.LastError,
			})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	case "csv":
		data, err := formatter.TasksToCSV(list)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case "markdown", "md":
		return r.writePlain("%s", formatter.TasksToMarkdown(list))
	default:
		return r.writePlain("%s", formatter.TasksToText(list))
	}
}

// TasksRemove soft-deletes a task.
func (r *Runner) TasksRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.tasks.Delete(id); err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}

	r.logger.Info("task removed", "id", id)
	return nil
}

// TasksEnable resets a completed or failed task back to pending so the
// sweeps pick it up again.
func (r *Runner) TasksEnable(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := s.tasks.Get(id)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}

	task.Status = models.StatusPending
	task.RetryCount = 0
	task.NextRetryAt = nil
	task.LastError = ""

	if err := s.tasks.Update(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	r.logger.Info("task re-enabled", "id", id, "name", task.Name)
	return nil
}

// TasksRun executes one synchronization pass, streaming phase progress to the
// terminal.
func (r *Runner) TasksRun(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("[%s] %s\n", update.Phase, update.Message)
		}
	}()

	runErr := s.engine.RunTask(ctx, id, progress)
	close(progress)
	<-done

	if runErr != nil {
		return fmt.Errorf("task run failed: %w", runErr)
	}

	task, err := s.tasks.Get(id)
	if err != nil {
		return nil
	}

	return r.writePlainln("%s: %s (%d episodes)", task.Name, task.Status, task.CurrentEpisodes)
}
