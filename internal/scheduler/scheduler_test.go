package scheduler

import (
	"errors"
	"testing"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/shared"
)

func TestSchedulerRegister(t *testing.T) {
	t.Run("ValidSpec", func(t *testing.T) {
		s := New(nil)
		if err := s.Register("job-1", "0 8,20 * * *", func() {}); err != nil {
			t.Fatalf("valid spec rejected: %v", err)
		}
		if !s.Has("job-1") {
			t.Error("registered job must be tracked")
		}
		if s.Len() != 1 {
			t.Errorf("expected 1 job, got %d", s.Len())
		}
	})

	t.Run("InvalidSpecRejected", func(t *testing.T) {
		s := New(nil)
		err := s.Register("job-1", "not a cron line", func() {})
		if !errors.Is(err, shared.ErrInvalidCron) {
			t.Errorf("expected ErrInvalidCron, got %v", err)
		}
		if s.Has("job-1") {
			t.Error("invalid spec must not register a job")
		}
	})

	t.Run("InvalidSpecKeepsExisting", func(t *testing.T) {
		s := New(nil)
		if err := s.Register("job-1", "* * * * *", func() {}); err != nil {
			t.Fatalf("valid spec rejected: %v", err)
		}
		if err := s.Register("job-1", "garbage", func() {}); err == nil {
			t.Fatal("invalid replacement must error")
		}
		if !s.Has("job-1") {
			t.Error("failed replacement must keep the prior job")
		}
	})

	t.Run("ReplaceExisting", func(t *testing.T) {
		s := New(nil)
		if err := s.Register("job-1", "* * * * *", func() {}); err != nil {
			t.Fatalf("first register failed: %v", err)
		}
		if err := s.Register("job-1", "0 8 * * *", func() {}); err != nil {
			t.Fatalf("replacement failed: %v", err)
		}
		if s.Len() != 1 {
			t.Errorf("replacement must not leave two jobs, got %d", s.Len())
		}
	})

	t.Run("SixFieldSpecRejected", func(t *testing.T) {
		s := New(nil)
		if err := s.Register("job-1", "0 0 8 * * *", func() {}); !errors.Is(err, shared.ErrInvalidCron) {
			t.Errorf("parser is five-field; expected ErrInvalidCron, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		s := New(nil)
		if err := s.Register("job-1", "* * * * *", func() {}); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		s.Remove("job-1")
		if s.Has("job-1") {
			t.Error("removed job must be forgotten")
		}
		s.Remove("job-1")
	})
}

func cronTask(id, name, spec string) *models.Task {
	task := models.NewTask(name, "acct-1", "share-"+id, "", "dest-"+id)
	task.SetID(id)
	task.EnableCron = true
	task.CronExpr = spec
	return task
}

func TestSyncTaskJobs(t *testing.T) {
	t.Run("RegistersCronTasks", func(t *testing.T) {
		s := New(nil)
		tasks := []*models.Task{
			cronTask("task-1", "A", "0 8 * * *"),
			cronTask("task-2", "B", "30 20 * * *"),
		}

		s.SyncTaskJobs(tasks, func(string) {})

		if !s.Has("task-1") || !s.Has("task-2") {
			t.Error("every cron-enabled task must register")
		}
	})

	t.Run("SkipsInvalidSpec", func(t *testing.T) {
		s := New(nil)
		tasks := []*models.Task{
			cronTask("task-1", "A", "0 8 * * *"),
			cronTask("task-2", "B", "broken"),
		}

		s.SyncTaskJobs(tasks, func(string) {})

		if !s.Has("task-1") {
			t.Error("valid tasks must still register")
		}
		if s.Has("task-2") {
			t.Error("invalid task spec must be skipped")
		}
	})

	t.Run("InvalidRespecKeepsPriorJob", func(t *testing.T) {
		s := New(nil)
		s.SyncTaskJobs([]*models.Task{cronTask("task-1", "A", "0 8 * * *")}, func(string) {})

		s.SyncTaskJobs([]*models.Task{cronTask("task-1", "A", "broken")}, func(string) {})

		if !s.Has("task-1") {
			t.Error("an invalid updated spec must keep the prior job running")
		}
	})

	t.Run("RemovesStaleTaskJobs", func(t *testing.T) {
		s := New(nil)
		s.SyncTaskJobs([]*models.Task{cronTask("task-1", "A", "0 8 * * *")}, func(string) {})

		s.SyncTaskJobs([]*models.Task{cronTask("task-2", "B", "0 9 * * *")}, func(string) {})

		if s.Has("task-1") {
			t.Error("a task no longer cron-enabled must be removed")
		}
		if !s.Has("task-2") {
			t.Error("the replacement task must register")
		}
	})

	t.Run("SystemJobsSurviveReconcile", func(t *testing.T) {
		s := New(nil)
		if err := s.Register(JobFullSweep, "0 8,20 * * *", func() {}); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if err := s.Register(JobRetrySweep, RetrySweepSpec, func() {}); err != nil {
			t.Fatalf("register failed: %v", err)
		}

		s.SyncTaskJobs(nil, func(string) {})

		if !s.Has(JobFullSweep) || !s.Has(JobRetrySweep) {
			t.Error("reconciling task jobs must never touch system jobs")
		}
	})

	t.Run("DisabledTasksIgnored", func(t *testing.T) {
		s := New(nil)
		task := cronTask("task-1", "A", "0 8 * * *")
		task.EnableCron = false

		s.SyncTaskJobs([]*models.Task{task}, func(string) {})

		if s.Has("task-1") {
			t.Error("disabled tasks must not register")
		}
	})
}
