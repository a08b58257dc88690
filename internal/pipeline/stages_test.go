package pipeline

import (
	"context"
	"testing"

	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
	mocks "github.com/cloudmirror/sharesync/internal/testing"
)

func TestRenameStage(t *testing.T) {
	logger := shared.NewLogger(nil)

	t.Run("RenamesSavedFiles", func(t *testing.T) {
		task, account := pipelineFixtures()
		task.RenameSource = `Show E(\d+)\.mkv`
		task.RenameTarget = "Show S01E$1.mkv"

		renames := map[string]string{}
		provider := &mocks.MockProvider{
			ListFolderFunc: func(ctx context.Context, folderID string) (*services.Listing, error) {
				return &services.Listing{Files: []services.RemoteFile{
					{ID: "n1", Name: "Show E01.mkv", Hash: "h1"},
					{ID: "n2", Name: "older file.mkv", Hash: "h9"},
				}}, nil
			},
			RenameFunc: func(ctx context.Context, fileID, newName string) error {
				renames[fileID] = newName
				return nil
			},
		}

		stage := NewRenameStage(func(string) services.Provider { return provider }, logger)
		saved := []services.RemoteFile{{ID: "a1", Name: "Show E01.mkv", Hash: "h1"}}

		if err := stage.Run(context.Background(), task, account, saved, false); err != nil {
			t.Fatalf("stage failed: %v", err)
		}

		if renames["n1"] != "Show S01E01.mkv" {
			t.Errorf("saved file must be renamed through the template, got %q", renames["n1"])
		}
		if _, ok := renames["n2"]; ok {
			t.Error("files outside this save must be left alone")
		}
	})

	t.Run("NoRuleIsNoop", func(t *testing.T) {
		task, account := pipelineFixtures()

		provider := &mocks.MockProvider{
			ListFolderFunc: func(ctx context.Context, folderID string) (*services.Listing, error) {
				t.Error("no rename rule means no provider calls")
				return &services.Listing{}, nil
			},
		}

		stage := NewRenameStage(func(string) services.Provider { return provider }, logger)
		if err := stage.Run(context.Background(), task, account, nil, false); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("InvalidPattern", func(t *testing.T) {
		task, account := pipelineFixtures()
		task.RenameSource = `E(\d+`
		task.RenameTarget = "x"

		stage := NewRenameStage(func(string) services.Provider { return &mocks.MockProvider{} }, logger)
		if err := stage.Run(context.Background(), task, account, nil, false); err == nil {
			t.Error("invalid rename pattern must error")
		}
	})
}

type captureWriter struct {
	writes map[string]string
}

func (w *captureWriter) Write(path, url string) error {
	w.writes[path] = url
	return nil
}

func TestPointerStage(t *testing.T) {
	logger := shared.NewLogger(nil)

	t.Run("WritesPointerPerFile", func(t *testing.T) {
		task, account := pipelineFixtures()
		task.DestFolderPath = "tv/Show"
		account.PointerRoot = "/media/pointers"
		account.CloudRoot = "https://dav.example.com/dav/"

		writer := &captureWriter{writes: map[string]string{}}
		stage := NewPointerStage(writer, logger)

		files := []services.RemoteFile{
			{ID: "a1", Name: "Show E01.mkv", Hash: "h1"},
			{ID: "b2", Name: "Show E02.mkv", Hash: "h2"},
		}
		if err := stage.Run(context.Background(), task, account, files, true); err != nil {
			t.Fatalf("stage failed: %v", err)
		}

		if len(writer.writes) != 2 {
			t.Fatalf("expected 2 pointer files, got %d", len(writer.writes))
		}

		url, ok := writer.writes["/media/pointers/tv/Show/Show E01.strm"]
		if !ok {
			t.Fatalf("missing expected pointer path, got %v", writer.writes)
		}
		if url != "https://dav.example.com/dav/tv/Show/Show E01.mkv" {
			t.Errorf("pointer must hold the cloud URL, got %q", url)
		}
	})

	t.Run("UnconfiguredAccountIsNoop", func(t *testing.T) {
		task, account := pipelineFixtures()

		writer := &captureWriter{writes: map[string]string{}}
		stage := NewPointerStage(writer, logger)

		files := []services.RemoteFile{{ID: "a1", Name: "Show E01.mkv"}}
		if err := stage.Run(context.Background(), task, account, files, false); err != nil {
			t.Fatalf("stage failed: %v", err)
		}
		if len(writer.writes) != 0 {
			t.Error("accounts without pointer roots must write nothing")
		}
	})
}
