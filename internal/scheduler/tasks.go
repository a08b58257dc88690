package scheduler

import (
	"strings"

	"github.com/cloudmirror/sharesync/internal/models"
)

// SyncTaskJobs reconciles per-task cron jobs with the current task set:
// cron-enabled tasks get a job under their task id, everything else is
// removed. Invalid cron expressions are logged and skipped; the remaining
// tasks still register.
func (s *Scheduler) SyncTaskJobs(tasks []*models.Task, run func(taskID string)) {
	want := make(map[string]struct{}, len(tasks))

	for _, task := range tasks {
		if !task.EnableCron || task.CronExpr == "" {
			continue
		}

		id := task.ID()
		want[id] = struct{}{}

		if err := s.Register(id, task.CronExpr, func() { run(id) }); err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping task with invalid cron expression", "task", task.Name, "error", err)
			}
			// Register kept any prior job; only drop the id when there is
			// nothing to keep, or the stale sweep would remove it.
			if !s.Has(id) {
				delete(want, id)
			}
		}
	}

	s.mu.Lock()
	var stale []string
	for key := range s.entries {
		if strings.HasPrefix(key, "system:") {
			continue
		}
		if _, ok := want[key]; !ok {
			stale = append(stale, key)
		}
	}
	s.mu.Unlock()

	for _, key := range stale {
		s.Remove(key)
	}
}
