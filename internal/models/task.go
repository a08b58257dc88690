package models

import (
	"fmt"
	"time"
)

// TaskStatus enumerates the lifecycle states of a synchronization task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// MatchOperator enumerates the comparison operators usable in a task's match rule.
type MatchOperator string

const (
	OpLessThan    MatchOperator = "lt"
	OpGreaterThan MatchOperator = "gt"
	OpEqual       MatchOperator = "eq"
	OpContains    MatchOperator = "contains"
	OpNotContains MatchOperator = "notContains"
)

// Valid reports whether op is one of the known match operators.
func (op MatchOperator) Valid() bool {
	switch op {
	case OpLessThan, OpGreaterThan, OpEqual, OpContains, OpNotContains:
		return true
	}
	return false
}

// ShareMode distinguishes open shares from access-code protected ones.
type ShareMode int

const (
	ShareModeOpen       ShareMode = 0
	ShareModeAccessCode ShareMode = 1
)

// Task is the unit of synchronization: one remote share subtree mirrored
// into one destination folder.
//
// Identity and timestamps are managed by the repository; all other fields are
// mutated exclusively by the task lifecycle controller during a run.
type Task struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time

	Name string

	// Source binding
	AccountID      string
	ShareID        string
	ShareMode      ShareMode
	AccessCode     string
	RemoteFolderID string

	// Destination binding. DestRootID records the destination folder's parent
	// at creation time and distinguishes "folder vanished, recreate it" from
	// "folder was never created".
	DestFolderID   string
	DestFolderPath string
	DestRootID     string

	// Progress
	CurrentEpisodes  int
	TotalEpisodes    *int
	LastFileUpdateAt *time.Time
	LastCheckAt      *time.Time

	// Status and retry bookkeeping
	Status      TaskStatus
	LastError   string
	RetryCount  int
	NextRetryAt *time.Time

	// Match rule (optional): first regex capture of MatchPattern applied to a
	// remote file name, compared to MatchValue with MatchOperator.
	MatchPattern  string
	MatchOperator MatchOperator
	MatchValue    string

	// Rename rule (optional), applied by the pipeline rename stage.
	RenameSource string
	RenameTarget string

	// Scheduling
	EnableCron bool
	CronExpr   string
}

// NewTask creates a pending task bound to the given share and destination.
func NewTask(name, accountID, shareID, remoteFolderID, destFolderID string) *Task {
	now := time.Now()
	return &Task{
		Name:           name,
		AccountID:      accountID,
		ShareID:        shareID,
		RemoteFolderID: remoteFolderID,
		DestFolderID:   destFolderID,
		Status:         StatusPending,
		createdAt:      now,
		updatedAt:      now,
	}
}

func (t *Task) ID() string            { return t.id }
func (t *Task) Sequence() int         { return t.sequence }
func (t *Task) CreatedAt() time.Time  { return t.createdAt }
func (t *Task) UpdatedAt() time.Time  { return t.updatedAt }
func (t *Task) DeletedAt() *time.Time { return t.deletedAt }

func (t *Task) SetID(id string)            { t.id = id }
func (t *Task) SetSequence(seq int)        { t.sequence = seq }
func (t *Task) SetCreatedAt(ts time.Time)  { t.createdAt = ts }
func (t *Task) SetUpdatedAt(ts time.Time)  { t.updatedAt = ts }
func (t *Task) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }

// Validate checks the task's bindings and enumerated fields.
func (t *Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if t.AccountID == "" {
		return fmt.Errorf("task account_id is required")
	}
	if t.ShareID == "" {
		return fmt.Errorf("task share_id is required")
	}
	if t.DestFolderID == "" {
		return fmt.Errorf("task dest_folder_id is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status: %s", t.Status)
	}
	if t.MatchOperator != "" && !t.MatchOperator.Valid() {
		return fmt.Errorf("invalid match operator: %s", t.MatchOperator)
	}
	if t.RetryCount < 0 {
		return fmt.Errorf("retry count cannot be negative")
	}
	return nil
}

// HasMatchRule reports whether the task configures a full deterministic match rule.
func (t *Task) HasMatchRule() bool {
	return t.MatchPattern != "" && t.MatchOperator != "" && t.MatchValue != ""
}

// EpisodesDone reports whether a positive episode total has been reached.
func (t *Task) EpisodesDone() bool {
	return t.TotalEpisodes != nil && *t.TotalEpisodes > 0 && t.CurrentEpisodes >= *t.TotalEpisodes
}

// RetryDue reports whether the task is awaiting a retry that is due at now.
func (t *Task) RetryDue(now time.Time) bool {
	return t.Status == StatusPending && t.NextRetryAt != nil && !t.NextRetryAt.After(now)
}
