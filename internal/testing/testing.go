// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/services"
)

// MockProvider is a configurable test double for [services.Provider].
// Unset hooks return zero values and no error.
type MockProvider struct {
	ListShareFolderFunc func(ctx context.Context, shareID, folderID string, mode models.ShareMode, accessCode string) (*services.Listing, error)
	ListFolderFunc      func(ctx context.Context, folderID string) (*services.Listing, error)
	CreateSaveJobFunc   func(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error)
	DeleteJobFunc       func(ctx context.Context, fileIDs []string) (string, error)
	EmptyRecycleFunc    func(ctx context.Context) (string, error)
	PollJobFunc         func(ctx context.Context, jobID string) (*services.JobState, error)
	GetConflictsFunc    func(ctx context.Context, jobID string) ([]services.Conflict, error)
	ResolveFunc         func(ctx context.Context, jobID string, resolutions []services.Resolution) error
	RenameFunc          func(ctx context.Context, fileID, newName string) error
	CreateFolderFunc    func(ctx context.Context, name, parentID string) (string, error)
}

func (m *MockProvider) ListShareFolder(ctx context.Context, shareID, folderID string, mode models.ShareMode, accessCode string) (*services.Listing, error) {
	if m.ListShareFolderFunc != nil {
		return m.ListShareFolderFunc(ctx, shareID, folderID, mode, accessCode)
	}
	return &services.Listing{}, nil
}

func (m *MockProvider) ListFolder(ctx context.Context, folderID string) (*services.Listing, error) {
	if m.ListFolderFunc != nil {
		return m.ListFolderFunc(ctx, folderID)
	}
	return &services.Listing{}, nil
}

func (m *MockProvider) CreateSaveJob(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error) {
	if m.CreateSaveJobFunc != nil {
		return m.CreateSaveJobFunc(ctx, fileIDs, destFolderID, shareID)
	}
	return "job-1", nil
}

func (m *MockProvider) CreateDeleteJob(ctx context.Context, fileIDs []string) (string, error) {
	if m.DeleteJobFunc != nil {
		return m.DeleteJobFunc(ctx, fileIDs)
	}
	return "job-del", nil
}

func (m *MockProvider) CreateEmptyRecycleJob(ctx context.Context) (string, error) {
	if m.EmptyRecycleFunc != nil {
		return m.EmptyRecycleFunc(ctx)
	}
	return "job-recycle", nil
}

func (m *MockProvider) PollJob(ctx context.Context, jobID string) (*services.JobState, error) {
	if m.PollJobFunc != nil {
		return m.PollJobFunc(ctx, jobID)
	}
	return &services.JobState{Status: services.JobDone}, nil
}

func (m *MockProvider) GetConflicts(ctx context.Context, jobID string) ([]services.Conflict, error) {
	if m.GetConflictsFunc != nil {
		return m.GetConflictsFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *MockProvider) ResolveConflicts(ctx context.Context, jobID string, resolutions []services.Resolution) error {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, jobID, resolutions)
	}
	return nil
}

func (m *MockProvider) Rename(ctx context.Context, fileID, newName string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, fileID, newName)
	}
	return nil
}

func (m *MockProvider) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if m.CreateFolderFunc != nil {
		return m.CreateFolderFunc(ctx, name, parentID)
	}
	return "folder-1", nil
}

// MockAI is a test double for [services.AIClient].
type MockAI struct {
	FilterFunc func(ctx context.Context, resource string, files []services.RemoteFile, description string) ([]string, error)
}

func (m *MockAI) FilterFiles(ctx context.Context, resource string, files []services.RemoteFile, description string) ([]string, error) {
	if m.FilterFunc != nil {
		return m.FilterFunc(ctx, resource, files, description)
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
