// package pipeline runs the post-save side effects of a successful incremental
// sync: rename, pointer-file generation, directory cache invalidation,
// metadata scraping, and media-server notification.
//
// Events are carried on a persistent file-backed queue so pipeline execution
// is decoupled from the triggering task run and survives restarts. Each stage
// is error-isolated: one stage failing never blocks the others and never
// touches the task's already-persisted sync progress.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// Event is the completion event emitted after a task run saves new files.
type Event struct {
	ID         string                `json:"id"`
	TaskID     string                `json:"task_id"`
	Files      []services.RemoteFile `json:"files"`
	FirstRun   bool                  `json:"first_run"`
	EnqueuedAt time.Time             `json:"enqueued_at"`
}

// NewEvent builds a completion event for the given task and accepted files.
func NewEvent(taskID string, files []services.RemoteFile, firstRun bool) Event {
	return Event{
		ID:         shared.GenerateID(),
		TaskID:     taskID,
		Files:      files,
		FirstRun:   firstRun,
		EnqueuedAt: time.Now(),
	}
}

const defaultQueueCapacity = 1024

// Queue is a bounded, file-backed FIFO of completion events. Every mutation
// is flushed to disk before it is acknowledged.
type Queue struct {
	path         string
	capacity     int
	pollInterval time.Duration
	mu           sync.Mutex
	items        []Event
}

type queueState struct {
	Items []Event `json:"items"`
}

// NewQueue opens (or creates) a queue backed by the file at path.
func NewQueue(path string, capacity int) (*Queue, error) {
	if path == "" {
		return nil, shared.ErrInvalidInput
	}
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	q := &Queue{
		path:         path,
		capacity:     capacity,
		pollInterval: 100 * time.Millisecond,
		items:        []Event{},
	}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) load() error {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var state queueState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Items != nil {
		q.items = state.Items
	}
	return nil
}

func (q *Queue) saveLocked() error {
	data, err := json.Marshal(queueState{Items: q.items})
	if err != nil {
		return err
	}

	tmp := q.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(q.path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}

// TryEnqueue appends an event without blocking. Returns false when the queue
// is full or the state file cannot be written.
func (q *Queue) TryEnqueue(event Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return false
	}

	q.items = append(q.items, event)
	if err := q.saveLocked(); err != nil {
		q.items = q.items[:len(q.items)-1]
		return false
	}
	return true
}

// Dequeue removes and returns the oldest event, blocking until one is
// available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			event := q.items[0]
			rest := make([]Event, len(q.items)-1)
			copy(rest, q.items[1:])
			q.items = rest
			if err := q.saveLocked(); err != nil {
				q.items = append([]Event{event}, q.items...)
				q.mu.Unlock()
				select {
				case <-ctx.Done():
					return Event{}, false
				case <-time.After(q.pollInterval):
					continue
				}
			}
			q.mu.Unlock()
			return event, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-time.After(q.pollInterval):
		}
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stage is one independent post-save step. Stages receive the task, its
// account, the newly accepted files, and whether this was the task's first
// successful save.
type Stage interface {
	Name() string
	Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error
}

// Worker drains the queue and runs every stage against each event.
type Worker struct {
	queue    *Queue
	tasks    models.Repository[*models.Task]
	accounts models.Repository[*models.Account]
	stages   []Stage
	logger   *log.Logger
}

// NewWorker creates a pipeline worker. Stage order is execution order.
func NewWorker(queue *Queue, tasks models.Repository[*models.Task], accounts models.Repository[*models.Account], stages []Stage, logger *log.Logger) *Worker {
	return &Worker{
		queue:    queue,
		tasks:    tasks,
		accounts: accounts,
		stages:   stages,
		logger:   logger,
	}
}

// Run processes events until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		event, ok := w.queue.Dequeue(ctx)
		if !ok {
			return
		}
		w.Process(ctx, event)
	}
}

// Process runs all stages for one event. Stage failures are logged and
// isolated; the event itself is considered handled either way since the
// task's sync progress is already persisted.
func (w *Worker) Process(ctx context.Context, event Event) {
	logger := w.logger.With("event", event.ID, "task", event.TaskID)

	task, err := w.tasks.Get(event.TaskID)
	if err != nil {
		// Task removed between save and pipeline run; nothing to do.
		logger.Warn("skipping pipeline event, task gone", "error", err)
		return
	}

	account, err := w.accounts.Get(task.AccountID)
	if err != nil {
		logger.Warn("skipping pipeline event, account gone", "error", err)
		return
	}

	for _, stage := range w.stages {
		if err := stage.Run(ctx, task, account, event.Files, event.FirstRun); err != nil {
			logger.Warn("pipeline stage failed", "stage", stage.Name(), "error", err)
			continue
		}
		logger.Debug("pipeline stage done", "stage", stage.Name())
	}
}
