package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/cloudmirror/sharesync/internal/pipeline"
	"github.com/cloudmirror/sharesync/internal/scheduler"
)

// SweepFull runs every schedulable task once and exits.
func (r *Runner) SweepFull(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.engine.Sweep(ctx)
}

// SweepRetry runs every retry-due task once and exits.
func (r *Runner) SweepRetry(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.engine.RetrySweep(ctx)
}

// SweepCleanup empties every account's recycle bin and exits.
func (r *Runner) SweepCleanup(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.engine.CleanupRecycleBins(ctx)
}

// Serve runs the cron scheduler and the completion pipeline worker until the
// process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(r.logger)

	if config.Sync.SweepCron != "" {
		if err := sched.Register(scheduler.JobFullSweep, config.Sync.SweepCron, func() {
			if err := s.engine.Sweep(serveCtx); err != nil {
				r.logger.Error("full sweep failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to register full sweep: %w", err)
		}
	}

	if err := sched.Register(scheduler.JobRetrySweep, scheduler.RetrySweepSpec, func() {
		if err := s.engine.RetrySweep(serveCtx); err != nil {
			r.logger.Error("retry sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to register retry sweep: %w", err)
	}

	if config.Sync.CleanupCron != "" {
		if err := sched.Register(scheduler.JobCleanup, config.Sync.CleanupCron, func() {
			if err := s.engine.CleanupRecycleBins(serveCtx); err != nil {
				r.logger.Error("recycle bin cleanup failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to register cleanup job: %w", err)
		}
	}

	cronTasks, err := s.tasks.List(map[string]any{"enable_cron": true})
	if err != nil {
		return fmt.Errorf("failed to list cron tasks: %w", err)
	}
	sched.SyncTaskJobs(cronTasks, func(taskID string) {
		if err := s.engine.RunTask(serveCtx, taskID, nil); err != nil {
			r.logger.Error("scheduled task run failed", "task", taskID, "error", err)
		}
	})

	worker := pipeline.NewWorker(s.queue, s.tasks, s.accounts, r.stages(config), r.logger)
	go worker.Run(serveCtx)

	sched.Start()
	r.logger.Info("scheduler running", "jobs", sched.Len(), "queued_events", s.queue.Len())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		r.logger.Info("shutting down", "signal", sig)
	case <-ctx.Done():
	}

	cancel()
	sched.Stop()
	return nil
}
