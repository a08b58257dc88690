package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
)

func testEvent(taskID string) Event {
	return NewEvent(taskID, []services.RemoteFile{
		{ID: "a1", Name: "Show E01.mkv", Hash: "h1"},
	}, false)
}

func TestQueue(t *testing.T) {
	t.Run("FIFO", func(t *testing.T) {
		queue, err := NewQueue(filepath.Join(t.TempDir(), "queue.json"), 8)
		if err != nil {
			t.Fatalf("failed to create queue: %v", err)
		}

		first := testEvent("task-1")
		second := testEvent("task-2")
		if !queue.TryEnqueue(first) || !queue.TryEnqueue(second) {
			t.Fatal("enqueue must succeed below capacity")
		}

		got, ok := queue.Dequeue(context.Background())
		if !ok || got.ID != first.ID {
			t.Errorf("expected first event, got %v", got.ID)
		}
		got, ok = queue.Dequeue(context.Background())
		if !ok || got.ID != second.ID {
			t.Errorf("expected second event, got %v", got.ID)
		}
	})

	t.Run("CapacityBound", func(t *testing.T) {
		queue, err := NewQueue(filepath.Join(t.TempDir(), "queue.json"), 2)
		if err != nil {
			t.Fatalf("failed to create queue: %v", err)
		}

		if !queue.TryEnqueue(testEvent("task-1")) || !queue.TryEnqueue(testEvent("task-2")) {
			t.Fatal("enqueue must succeed below capacity")
		}
		if queue.TryEnqueue(testEvent("task-3")) {
			t.Error("enqueue past capacity must fail")
		}
		if queue.Len() != 2 {
			t.Errorf("expected 2 queued events, got %d", queue.Len())
		}
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "queue.json")

		queue, err := NewQueue(path, 8)
		if err != nil {
			t.Fatalf("failed to create queue: %v", err)
		}
		event := testEvent("task-1")
		if !queue.TryEnqueue(event) {
			t.Fatal("enqueue failed")
		}

		reopened, err := NewQueue(path, 8)
		if err != nil {
			t.Fatalf("failed to reopen queue: %v", err)
		}
		if reopened.Len() != 1 {
			t.Fatalf("expected 1 persisted event, got %d", reopened.Len())
		}

		got, ok := reopened.Dequeue(context.Background())
		if !ok || got.ID != event.ID || got.TaskID != "task-1" {
			t.Errorf("persisted event mismatch: %+v", got)
		}
		if len(got.Files) != 1 || got.Files[0].Hash != "h1" {
			t.Errorf("persisted files mismatch: %+v", got.Files)
		}
	})

	t.Run("DequeueHonorsContext", func(t *testing.T) {
		queue, err := NewQueue(filepath.Join(t.TempDir(), "queue.json"), 8)
		if err != nil {
			t.Fatalf("failed to create queue: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, ok := queue.Dequeue(ctx); ok {
			t.Error("dequeue on an empty queue must return once ctx is done")
		}
	})

	t.Run("EmptyPath", func(t *testing.T) {
		if _, err := NewQueue("", 8); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

type stubTaskRepo struct {
	task *models.Task
}

func (r *stubTaskRepo) Create(*models.Task) error { return nil }
func (r *stubTaskRepo) Update(*models.Task) error { return nil }
func (r *stubTaskRepo) Delete(string) error       { return nil }
func (r *stubTaskRepo) Get(id string) (*models.Task, error) {
	if r.task == nil || r.task.ID() != id {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return r.task, nil
}
func (r *stubTaskRepo) List(map[string]any) ([]*models.Task, error) { return nil, nil }

type stubAccountRepo struct {
	account *models.Account
}

func (r *stubAccountRepo) Create(*models.Account) error { return nil }
func (r *stubAccountRepo) Update(*models.Account) error { return nil }
func (r *stubAccountRepo) Delete(string) error          { return nil }
func (r *stubAccountRepo) Get(id string) (*models.Account, error) {
	if r.account == nil || r.account.ID() != id {
		return nil, fmt.Errorf("account not found: %s", id)
	}
	return r.account, nil
}
func (r *stubAccountRepo) List(map[string]any) ([]*models.Account, error) { return nil, nil }

type recordingStage struct {
	name string
	err  error
	runs int
}

func (s *recordingStage) Name() string { return s.name }
func (s *recordingStage) Run(ctx context.Context, task *models.Task, account *models.Account, files []services.RemoteFile, firstRun bool) error {
	s.runs++
	return s.err
}

func pipelineFixtures() (*models.Task, *models.Account) {
	task := models.NewTask("Show", "acct-1", "share-1", "", "dest-1")
	task.SetID("task-1")
	account := models.NewAccount("main", "cookie")
	account.SetID("acct-1")
	return task, account
}

func TestWorkerProcess(t *testing.T) {
	logger := shared.NewLogger(nil)

	t.Run("RunsAllStages", func(t *testing.T) {
		task, account := pipelineFixtures()
		first := &recordingStage{name: "first"}
		second := &recordingStage{name: "second"}

		worker := NewWorker(nil, &stubTaskRepo{task: task}, &stubAccountRepo{account: account}, []Stage{first, second}, logger)
		worker.Process(context.Background(), testEvent("task-1"))

		if first.runs != 1 || second.runs != 1 {
			t.Errorf("every stage must run once, got %d and %d", first.runs, second.runs)
		}
	})

	t.Run("StageFailureIsolated", func(t *testing.T) {
		task, account := pipelineFixtures()
		failing := &recordingStage{name: "failing", err: errors.New("stage broke")}
		after := &recordingStage{name: "after"}

		worker := NewWorker(nil, &stubTaskRepo{task: task}, &stubAccountRepo{account: account}, []Stage{failing, after}, logger)
		worker.Process(context.Background(), testEvent("task-1"))

		if after.runs != 1 {
			t.Error("a failing stage must not block the stages after it")
		}
	})

	t.Run("TaskGoneSkips", func(t *testing.T) {
		_, account := pipelineFixtures()
		stage := &recordingStage{name: "stage"}

		worker := NewWorker(nil, &stubTaskRepo{}, &stubAccountRepo{account: account}, []Stage{stage}, logger)
		worker.Process(context.Background(), testEvent("task-1"))

		if stage.runs != 0 {
			t.Error("a removed task must skip the whole pipeline")
		}
	})

	t.Run("AccountGoneSkips", func(t *testing.T) {
		task, _ := pipelineFixtures()
		stage := &recordingStage{name: "stage"}

		worker := NewWorker(nil, &stubTaskRepo{task: task}, &stubAccountRepo{}, []Stage{stage}, logger)
		worker.Process(context.Background(), testEvent("task-1"))

		if stage.runs != 0 {
			t.Error("a removed account must skip the whole pipeline")
		}
	})
}
