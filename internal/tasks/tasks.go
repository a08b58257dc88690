// package tasks implements the synchronization engine that mirrors shared
// cloud-storage folders into a user's own storage.
//
// The core abstraction is SyncEngine, which drives one task run end to end:
// list the remote share, diff it against the destination folder, prune the
// candidates through the match rule and the harmonized filter, push the batch
// transfer to completion, and persist the task's advanced state exactly once.
// Runs emit progress updates via channels for non-blocking status reporting
// to the CLI layer.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/cloudmirror/sharesync/internal/filters"
	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/pipeline"
	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// CompletionQueue is where successful runs park their completion events for
// the out-of-band pipeline worker.
type CompletionQueue interface {
	TryEnqueue(event pipeline.Event) bool
}

// SyncEngine defines the task synchronization operations.
type SyncEngine interface {
	// RunTask executes one synchronization pass for the given task.
	RunTask(ctx context.Context, taskID string, progress chan<- ProgressUpdate) error

	// Sweep runs every schedulable non-cron task sequentially with the
	// configured inter-task pause.
	Sweep(ctx context.Context) error

	// RetrySweep runs every task whose retry is due.
	RetrySweep(ctx context.Context) error

	// CleanupRecycleBins empties the recycle bin of every account.
	CleanupRecycleBins(ctx context.Context) error
}

// Engine implements [SyncEngine].
type Engine struct {
	tasks      models.Repository[*models.Task]
	accounts   models.Repository[*models.Account]
	providers  services.ProviderFactory
	ai         services.AIClient
	harmonized Harmonized
	queue      CompletionQueue
	sync       shared.SyncConfig
	provider   shared.ProviderConfig
	aiEnabled  bool
	logger     *log.Logger

	// One lock per task id so overlapping cron and sweep triggers cannot
	// double-submit the same task.
	running sync.Map
}

// EngineOpts contains the collaborators and configuration for an Engine.
type EngineOpts struct {
	Tasks      models.Repository[*models.Task]
	Accounts   models.Repository[*models.Account]
	Providers  services.ProviderFactory
	AI         services.AIClient
	Harmonized Harmonized
	Queue      CompletionQueue
	Sync       shared.SyncConfig
	Provider   shared.ProviderConfig
	AIEnabled  bool
	Logger     *log.Logger
}

// NewEngine creates a new Engine with the provided collaborators.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Engine{
		tasks:      opts.Tasks,
		accounts:   opts.Accounts,
		providers:  opts.Providers,
		ai:         opts.AI,
		harmonized: opts.Harmonized,
		queue:      opts.Queue,
		sync:       opts.Sync,
		provider:   opts.Provider,
		aiEnabled:  opts.AIEnabled,
		logger:     opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// RunTask executes one synchronization pass for taskID.
//
// Every failure inside the pass is converted into persisted task state (retry
// bookkeeping or terminal failure); a share pending provider moderation is a
// soft no-op that leaves the task untouched. The task is persisted exactly
// once, at the end of the pass.
func (e *Engine) RunTask(ctx context.Context, taskID string, progress chan<- ProgressUpdate) error {
	if _, loaded := e.running.LoadOrStore(taskID, struct{}{}); loaded {
		e.logger.Warn("task run already in progress, skipping", "task", taskID)
		return nil
	}
	defer e.running.Delete(taskID)

	task, err := e.tasks.Get(taskID)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, taskID)
	}

	logger := e.logger.With("task", task.Name)

	priorFirstRun := task.LastFileUpdateAt == nil

	runErr := e.runOnce(ctx, task, priorFirstRun, logger, progress)
	if runErr != nil {
		if errors.Is(runErr, shared.ErrShareModerated) {
			// Not an error for retry purposes: the share will clear (or not)
			// on the provider's own time; re-attempt on the next schedule.
			logger.Info("share pending moderation, skipping run")
			return nil
		}
		e.recordFailure(task, runErr, logger)
	}

	now := time.Now()
	task.LastCheckAt = &now

	e.sendProgress(progress, ProgressUpdate{Phase: PersistTask, Step: 1, Total: 1, Message: "Persisting task state..."})
	if err := e.tasks.Update(task); err != nil {
		// The run itself happened; a persistence failure must not cascade
		// into the scheduler loop.
		logger.Error("failed to persist task state", "error", err)
		return fmt.Errorf("failed to persist task: %w", err)
	}

	return runErr
}

// runOnce performs steps 1-6 of a pass, mutating task in place. It never
// persists; RunTask owns the single persistence point.
func (e *Engine) runOnce(ctx context.Context, task *models.Task, firstRun bool, logger *log.Logger, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, fetchAccountUpdate())

	account, err := e.accounts.Get(task.AccountID)
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, task.AccountID)
	}

	provider := e.providers(account.Credential)

	e.sendProgress(progress, fetchRemoteUpdate(task.ShareID))
	remote, err := provider.ListShareFolder(ctx, task.ShareID, task.RemoteFolderID, task.ShareMode, task.AccessCode)
	if err != nil {
		return err
	}

	dest, err := e.listDestination(ctx, provider, task, logger, progress)
	if err != nil {
		return err
	}

	candidates, err := e.computeCandidates(ctx, task, remote, dest, logger, progress)
	if err != nil {
		return err
	}

	e.sendProgress(progress, deltaUpdate(len(candidates)))

	if len(candidates) > 0 {
		machine := NewTransferMachine(provider, e.harmonized, e.provider.PollDelay(), e.provider.MaxPollRetries, logger)

		e.sendProgress(progress, submitBatchUpdate(len(candidates)))
		accepted, err := machine.SaveFiles(ctx, candidates, task.DestFolderID, task.ShareID)
		if err != nil {
			return err
		}

		now := time.Now()
		task.Status = models.StatusProcessing
		task.CurrentEpisodes += len(accepted)
		task.RetryCount = 0
		task.NextRetryAt = nil
		task.LastError = ""
		task.LastFileUpdateAt = &now

		logger.Info("saved new files", "accepted", len(accepted), "submitted", len(candidates))

		if len(accepted) > 0 {
			e.sendProgress(progress, enqueueUpdate())
			e.enqueueCompletion(task, accepted, firstRun, logger)
		}
	} else if task.LastFileUpdateAt != nil && e.sync.ExpiryDays > 0 {
		idle := time.Since(*task.LastFileUpdateAt)
		if idle > time.Duration(e.sync.ExpiryDays)*24*time.Hour {
			logger.Info("no updates within expiry window, marking completed", "idle_days", int(idle.Hours()/24))
			task.Status = models.StatusCompleted
		}
	}

	if task.EpisodesDone() {
		logger.Info("episode total reached, marking completed", "current", task.CurrentEpisodes)
		task.Status = models.StatusCompleted
	}

	return nil
}

// listDestination lists the destination folder, recreating it when it
// vanished remotely but existed before (task has a recorded destination root).
func (e *Engine) listDestination(ctx context.Context, provider services.Provider, task *models.Task, logger *log.Logger, progress chan<- ProgressUpdate) (*services.Listing, error) {
	e.sendProgress(progress, fetchDestUpdate(task.DestFolderID))

	dest, err := provider.ListFolder(ctx, task.DestFolderID)
	if err == nil {
		return dest, nil
	}
	if !errors.Is(err, shared.ErrFolderNotFound) || task.DestRootID == "" {
		return nil, err
	}

	e.sendProgress(progress, recreateFolderUpdate(task.DestFolderPath))
	logger.Warn("destination folder missing, recreating", "path", task.DestFolderPath)

	folderID, err := provider.CreateFolder(ctx, task.Name, task.DestRootID)
	if err != nil {
		return nil, fmt.Errorf("failed to recreate destination folder: %w", err)
	}

	task.DestFolderID = folderID
	return &services.Listing{}, nil
}

// computeCandidates runs the delta computation with either the deterministic
// match rule or, when enabled, the AI-assisted filter. The two modes are
// mutually exclusive per run; a failed AI call falls back to the
// deterministic rule.
func (e *Engine) computeCandidates(ctx context.Context, task *models.Task, remote, dest *services.Listing, logger *log.Logger, progress chan<- ProgressUpdate) ([]services.RemoteFile, error) {
	rule, err := filters.NewMatchRule(task.MatchPattern, task.MatchOperator, task.MatchValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	opts := DeltaOptions{
		OnlyMedia:     e.sync.OnlyMedia,
		MediaSuffixes: e.sync.MediaSuffixes,
		Rule:          rule,
		Harmonized:    e.harmonized,
	}

	useAI := e.aiEnabled && e.ai != nil && rule != nil
	if useAI {
		opts.Rule = nil
	}

	candidates := ComputeDelta(remote, dest, opts)

	if !useAI || len(candidates) == 0 {
		return candidates, nil
	}

	e.sendProgress(progress, filterAIUpdate(len(candidates)))

	keptIDs, err := e.ai.FilterFiles(ctx, task.Name, candidates, rule.Description())
	if err != nil {
		// AI is advisory: fall back to the deterministic rule for this run.
		logger.Warn("AI filter failed, falling back to match rule", "error", err)
		var filtered []services.RemoteFile
		for _, file := range candidates {
			if rule.Keep(file.Name) {
				filtered = append(filtered, file)
			}
		}
		return filtered, nil
	}

	kept := make(map[string]struct{}, len(keptIDs))
	for _, id := range keptIDs {
		kept[id] = struct{}{}
	}

	var filtered []services.RemoteFile
	for _, file := range candidates {
		if _, ok := kept[file.ID]; ok {
			filtered = append(filtered, file)
		}
	}
	return filtered, nil
}

// enqueueCompletion schedules the post-save pipeline for the accepted files.
// Fire-and-forget relative to the run: a full queue is logged, never fatal.
func (e *Engine) enqueueCompletion(task *models.Task, files []services.RemoteFile, firstRun bool, logger *log.Logger) {
	if e.queue == nil {
		return
	}

	event := pipeline.NewEvent(task.ID(), files, firstRun)
	if !e.queue.TryEnqueue(event) {
		logger.Error("completion queue full, dropping pipeline event", "event", event.ID)
	}
}

// recordFailure applies the uniform failure path: bump the retry counter,
// then either schedule a retry or mark the task terminally failed.
func (e *Engine) recordFailure(task *models.Task, runErr error, logger *log.Logger) {
	task.RetryCount++
	if task.RetryCount > e.sync.MaxRetries {
		task.RetryCount = e.sync.MaxRetries
	}

	if task.RetryCount < e.sync.MaxRetries {
		next := time.Now().Add(e.sync.RetryInterval())
		task.Status = models.StatusPending
		task.NextRetryAt = &next
		task.LastError = fmt.Sprintf("%v (retry %d/%d)", runErr, task.RetryCount, e.sync.MaxRetries)
		logger.Warn("task run failed, retry scheduled", "error", runErr, "retry", task.RetryCount, "next", next)
		return
	}

	task.Status = models.StatusFailed
	task.NextRetryAt = nil
	task.LastError = fmt.Sprintf("%v (retries exhausted after %d attempts)", runErr, e.sync.MaxRetries)
	logger.Error("task failed permanently", "error", runErr, "retries", task.RetryCount)
}

// Sweep runs every pending or processing task that is not on its own cron
// schedule. Tasks execute sequentially with a fixed inter-task pause; the
// pause is a provider-side rate-limit guard, not an optimization.
func (e *Engine) Sweep(ctx context.Context) error {
	all, err := e.tasks.List(map[string]any{"enable_cron": false})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	return e.runSequential(ctx, sweepable(all))
}

// RetrySweep runs every task whose retry time has arrived.
func (e *Engine) RetrySweep(ctx context.Context) error {
	due, err := e.tasks.List(map[string]any{"retry_due_before": time.Now()})
	if err != nil {
		return fmt.Errorf("failed to list retry-due tasks: %w", err)
	}

	return e.runSequential(ctx, due)
}

// runSequential executes tasks one at a time, pacing them with the configured
// inter-task pause. Per-task errors are already absorbed into task state by
// RunTask; nothing here aborts the remaining set.
func (e *Engine) runSequential(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	pause := e.sync.TaskPause()
	if pause <= 0 {
		pause = 500 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(pause), 1)

	for _, task := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if err := e.RunTask(ctx, task.ID(), nil); err != nil {
			e.logger.Warn("sweep task run failed", "task", task.Name, "error", err)
		}
	}

	return nil
}

// sweepable filters a task list down to the statuses a full sweep advances.
func sweepable(tasks []*models.Task) []*models.Task {
	var out []*models.Task
	for _, task := range tasks {
		if task.Status == models.StatusPending || task.Status == models.StatusProcessing {
			out = append(out, task)
		}
	}
	return out
}

// CleanupRecycleBins empties the recycle bin of every account through the
// shared batch job loop. Per-account failures are logged and isolated.
func (e *Engine) CleanupRecycleBins(ctx context.Context) error {
	accounts, err := e.accounts.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, account := range accounts {
		provider := e.providers(account.Credential)
		machine := NewTransferMachine(provider, e.harmonized, e.provider.PollDelay(), e.provider.MaxPollRetries, e.logger)

		if err := machine.EmptyRecycleBin(ctx); err != nil {
			e.logger.Warn("recycle bin cleanup failed", "account", account.Name, "error", err)
			continue
		}
		e.logger.Info("recycle bin emptied", "account", account.Name)
	}

	return nil
}
