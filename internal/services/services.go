// package services defines the contracts for the external collaborators the
// sync engine drives: the cloud storage provider and the AI text service.
package services

import (
	"context"

	"github.com/cloudmirror/sharesync/internal/models"
)

// RemoteFile is one entry of a provider listing. Transient: listings are
// re-fetched on every synchronization pass, never cached by the engine.
type RemoteFile struct {
	ID   string
	Name string
	Hash string // content hash; may be empty for some provider responses
	Size int64
}

// Listing is the content of one remote folder.
type Listing struct {
	Files   []RemoteFile
	Folders []RemoteFile
}

// JobStatus is the engine-side view of a provider batch job's state.
type JobStatus int

const (
	JobQueued   JobStatus = iota // accepted, not started
	JobRunning                   // in progress
	JobDone                      // terminal; check FailedCount
	JobConflict                  // provider detected name/identity conflicts
)

func (s JobStatus) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobDone:
		return "done"
	case JobConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// JobState is a snapshot of one asynchronous batch job.
type JobState struct {
	Status      JobStatus
	FailedCount int
}

// Conflict describes one file the provider refused to save because an entry
// with the same name or identity already exists at the destination.
type Conflict struct {
	FileID   string
	FileName string
}

// Resolution answers one conflict. The engine always keeps the existing file.
type Resolution struct {
	FileID string
	Action string
}

// ResolutionKeepExisting leaves the destination file in place and skips the
// conflicting remote file.
const ResolutionKeepExisting = "keep_existing"

// Provider is the cloud storage provider contract the engine consumes.
// Implementations are bound to one account credential.
type Provider interface {
	// ListShareFolder lists one folder of a share exposed by another account.
	// Returns an error wrapping shared.ErrShareModerated while the share is
	// pending provider moderation.
	ListShareFolder(ctx context.Context, shareID, folderID string, mode models.ShareMode, accessCode string) (*Listing, error)

	// ListFolder lists one folder of the bound account's own storage.
	ListFolder(ctx context.Context, folderID string) (*Listing, error)

	// CreateSaveJob submits an asynchronous save of the given share files
	// into destFolderID and returns the job id.
	CreateSaveJob(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error)

	// CreateDeleteJob submits an asynchronous bulk delete of the given files.
	CreateDeleteJob(ctx context.Context, fileIDs []string) (string, error)

	// CreateEmptyRecycleJob submits an asynchronous empty-recycle-bin job.
	CreateEmptyRecycleJob(ctx context.Context) (string, error)

	// PollJob queries the state of an asynchronous batch job.
	PollJob(ctx context.Context, jobID string) (*JobState, error)

	// GetConflicts fetches the conflicting file list of a JobConflict job.
	GetConflicts(ctx context.Context, jobID string) ([]Conflict, error)

	// ResolveConflicts submits conflict resolutions and lets the job resume.
	ResolveConflicts(ctx context.Context, jobID string, resolutions []Resolution) error

	// Rename renames a single file in the bound account's storage.
	Rename(ctx context.Context, fileID, newName string) error

	// CreateFolder creates a folder under parentID and returns its id.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
}

// ProviderFactory binds a provider client to one account credential.
type ProviderFactory func(credential string) Provider

// AIClient is the AI text service contract used by the AI-assisted filter.
type AIClient interface {
	// FilterFiles sends the candidate files with a natural-language filter
	// description and returns the ids of files to keep.
	FilterFiles(ctx context.Context, resource string, files []RemoteFile, description string) ([]string, error)
}
