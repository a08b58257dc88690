package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a task run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Run phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Run phase enumeration
type Phase int

const (
	FetchAccount Phase = iota
	FetchRemote
	FetchDest
	RecreateFolder
	ComputeDeltaPhase
	FilterAI
	SubmitBatch
	PollJob
	ResolveConflicts
	PersistTask
	EnqueuePipeline
)

func (p Phase) String() string {
	switch p {
	case FetchAccount:
		return "fetch_account"
	case FetchRemote:
		return "fetch_remote"
	case FetchDest:
		return "fetch_dest"
	case RecreateFolder:
		return "recreate_folder"
	case ComputeDeltaPhase:
		return "compute_delta"
	case FilterAI:
		return "filter_ai"
	case SubmitBatch:
		return "submit_batch"
	case PollJob:
		return "poll_job"
	case ResolveConflicts:
		return "resolve_conflicts"
	case PersistTask:
		return "persist_task"
	case EnqueuePipeline:
		return "enqueue_pipeline"
	default:
		return ""
	}
}

func fetchAccountUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAccount,
		Step:    1,
		Total:   1,
		Message: "Loading account...",
	}
}

func fetchRemoteUpdate(shareID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Listing share %s...", shareID),
	}
}

func fetchDestUpdate(folderID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Listing destination folder %s...", folderID),
	}
}

func recreateFolderUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecreateFolder,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Destination folder missing, recreating %s...", path),
	}
}

func deltaUpdate(candidates int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ComputeDeltaPhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d new files to save", candidates),
		Data:    candidates,
	}
}

func filterAIUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FilterAI,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Asking AI filter about %d candidates...", count),
	}
}

func submitBatchUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitBatch,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Submitting batch save of %d files...", count),
	}
}

func enqueueUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnqueuePipeline,
		Step:    1,
		Total:   1,
		Message: "Scheduling post-save pipeline...",
	}
}
