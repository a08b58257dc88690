package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
	mocks "github.com/cloudmirror/sharesync/internal/testing"
)

func testMachine(provider services.Provider, harmonized Harmonized) *TransferMachine {
	return NewTransferMachine(provider, harmonized, time.Millisecond, 10, nil)
}

func TestTransferMachineSaveFiles(t *testing.T) {
	files := []services.RemoteFile{
		file("a1", "Show E01.mkv", "h1"),
		file("b2", "Show E02.mkv", "h2"),
	}

	t.Run("CleanRun", func(t *testing.T) {
		var submitted []string
		provider := &mocks.MockProvider{
			CreateSaveJobFunc: func(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error) {
				submitted = fileIDs
				if destFolderID != "dest-1" || shareID != "share-1" {
					t.Errorf("unexpected submit target: %s %s", destFolderID, shareID)
				}
				return "job-1", nil
			},
		}

		accepted, err := testMachine(provider, nil).SaveFiles(context.Background(), files, "dest-1", "share-1")
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if len(accepted) != 2 {
			t.Errorf("expected 2 accepted, got %d", len(accepted))
		}
		if len(submitted) != 2 || submitted[0] != "a1" || submitted[1] != "b2" {
			t.Errorf("unexpected submitted ids: %v", submitted)
		}
	})

	t.Run("EmptyBatchIsNoop", func(t *testing.T) {
		provider := &mocks.MockProvider{
			CreateSaveJobFunc: func(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error) {
				t.Error("empty batch must not submit a job")
				return "", nil
			},
		}

		accepted, err := testMachine(provider, nil).SaveFiles(context.Background(), nil, "dest-1", "share-1")
		if err != nil || len(accepted) != 0 {
			t.Errorf("expected no accepted files and nil error; got %v, %v", accepted, err)
		}
	})

	t.Run("PollsUntilDone", func(t *testing.T) {
		polls := 0
		provider := &mocks.MockProvider{
			PollJobFunc: func(ctx context.Context, jobID string) (*services.JobState, error) {
				polls++
				if polls < 3 {
					return &services.JobState{Status: services.JobRunning}, nil
				}
				return &services.JobState{Status: services.JobDone}, nil
			},
		}

		if _, err := testMachine(provider, nil).SaveFiles(context.Background(), files, "dest-1", "share-1"); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if polls != 3 {
			t.Errorf("expected 3 polls, got %d", polls)
		}
	})

	t.Run("PollBudgetExhausted", func(t *testing.T) {
		polls := 0
		provider := &mocks.MockProvider{
			PollJobFunc: func(ctx context.Context, jobID string) (*services.JobState, error) {
				polls++
				return &services.JobState{Status: services.JobRunning}, nil
			},
		}

		machine := NewTransferMachine(provider, nil, time.Millisecond, 3, nil)
		_, err := machine.SaveFiles(context.Background(), files, "dest-1", "share-1")
		if !errors.Is(err, shared.ErrTransferFailed) {
			t.Errorf("expected ErrTransferFailed, got %v", err)
		}
		if polls != 3 {
			t.Errorf("budget of 3 means 3 poll attempts total, got %d", polls)
		}
	})

	t.Run("ConflictsResolvedKeepExisting", func(t *testing.T) {
		conflictPhase := true
		var resolved []services.Resolution
		provider := &mocks.MockProvider{
			PollJobFunc: func(ctx context.Context, jobID string) (*services.JobState, error) {
				if conflictPhase {
					return &services.JobState{Status: services.JobConflict}, nil
				}
				return &services.JobState{Status: services.JobDone}, nil
			},
			GetConflictsFunc: func(ctx context.Context, jobID string) ([]services.Conflict, error) {
				return []services.Conflict{{FileID: "a1", FileName: "Show E01.mkv"}}, nil
			},
			ResolveFunc: func(ctx context.Context, jobID string, resolutions []services.Resolution) error {
				resolved = resolutions
				conflictPhase = false
				return nil
			},
		}

		accepted, err := testMachine(provider, nil).SaveFiles(context.Background(), files, "dest-1", "share-1")
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if len(accepted) != 2 {
			t.Errorf("expected 2 accepted after conflict resolution, got %d", len(accepted))
		}
		if len(resolved) != 1 || resolved[0].Action != services.ResolutionKeepExisting {
			t.Errorf("conflicts must be answered keep-existing, got %v", resolved)
		}
	})

	t.Run("FailedFilesRecordedHarmonized", func(t *testing.T) {
		harmonized := newStubHarmonized()
		provider := &mocks.MockProvider{
			PollJobFunc: func(ctx context.Context, jobID string) (*services.JobState, error) {
				return &services.JobState{Status: services.JobDone, FailedCount: 1}, nil
			},
			ListFolderFunc: func(ctx context.Context, folderID string) (*services.Listing, error) {
				// Only the first file arrived.
				return &services.Listing{Files: []services.RemoteFile{file("x1", "Show E01.mkv", "h1")}}, nil
			},
		}

		accepted, err := testMachine(provider, harmonized).SaveFiles(context.Background(), files, "dest-1", "share-1")
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if len(accepted) != 1 || accepted[0].Hash != "h1" {
			t.Errorf("accepted list must hold only the saved file, got %v", accepted)
		}
		if !harmonized.MayContain("h2") {
			t.Error("missing hash must be recorded as harmonized")
		}
		if harmonized.MayContain("h1") {
			t.Error("saved hash must not be recorded")
		}
	})

	t.Run("SubmitError", func(t *testing.T) {
		provider := &mocks.MockProvider{
			CreateSaveJobFunc: func(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error) {
				return "", errors.New("quota exceeded")
			},
		}

		_, err := testMachine(provider, nil).SaveFiles(context.Background(), files, "dest-1", "share-1")
		if !errors.Is(err, shared.ErrTransferFailed) {
			t.Errorf("expected ErrTransferFailed, got %v", err)
		}
	})

	t.Run("PollErrorIsPermanent", func(t *testing.T) {
		polls := 0
		provider := &mocks.MockProvider{
			PollJobFunc: func(ctx context.Context, jobID string) (*services.JobState, error) {
				polls++
				return nil, errors.New("gateway timeout")
			},
		}

		_, err := testMachine(provider, nil).SaveFiles(context.Background(), files, "dest-1", "share-1")
		if !errors.Is(err, shared.ErrTransferFailed) {
			t.Errorf("expected ErrTransferFailed, got %v", err)
		}
		if polls != 1 {
			t.Errorf("poll errors must not be retried, got %d polls", polls)
		}
	})
}

func TestTransferMachineDeleteAndRecycle(t *testing.T) {
	t.Run("DeleteFiles", func(t *testing.T) {
		var deleted []string
		provider := &mocks.MockProvider{
			DeleteJobFunc: func(ctx context.Context, fileIDs []string) (string, error) {
				deleted = fileIDs
				return "job-del", nil
			},
		}

		if err := testMachine(provider, nil).DeleteFiles(context.Background(), []string{"a1", "b2"}); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if len(deleted) != 2 {
			t.Errorf("expected 2 deleted ids, got %v", deleted)
		}
	})

	t.Run("DeleteNothingIsNoop", func(t *testing.T) {
		provider := &mocks.MockProvider{
			DeleteJobFunc: func(ctx context.Context, fileIDs []string) (string, error) {
				t.Error("empty delete must not submit a job")
				return "", nil
			},
		}
		if err := testMachine(provider, nil).DeleteFiles(context.Background(), nil); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("EmptyRecycleBin", func(t *testing.T) {
		submitted := false
		provider := &mocks.MockProvider{
			EmptyRecycleFunc: func(ctx context.Context) (string, error) {
				submitted = true
				return "job-recycle", nil
			},
		}

		if err := testMachine(provider, nil).EmptyRecycleBin(context.Background()); err != nil {
			t.Fatalf("recycle cleanup failed: %v", err)
		}
		if !submitted {
			t.Error("recycle job was never submitted")
		}
	})
}
