package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
)

const (
	defaultPollDelay = 500 * time.Millisecond
	defaultMaxPolls  = 5
)

// TransferMachine drives one asynchronous provider batch job to a terminal
// state: submit, poll on a fixed short delay, auto-resolve conflicts, finish.
//
// The same poll/conflict loop backs batch saves, bulk deletes, and
// empty-recycle-bin jobs; only the submission differs.
type TransferMachine struct {
	provider   services.Provider
	harmonized Harmonized
	pollDelay  time.Duration
	maxPolls   uint64
	logger     *log.Logger
}

// NewTransferMachine creates a machine bound to one provider client.
func NewTransferMachine(provider services.Provider, harmonized Harmonized, pollDelay time.Duration, maxPolls int, logger *log.Logger) *TransferMachine {
	if pollDelay <= 0 {
		pollDelay = defaultPollDelay
	}
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}

	return &TransferMachine{
		provider:   provider,
		harmonized: harmonized,
		pollDelay:  pollDelay,
		maxPolls:   uint64(maxPolls),
		logger:     logger,
	}
}

// SaveFiles submits a batch save of the given files and drives it to
// completion. Returns the files the provider actually accepted; downstream
// pipeline stages must only ever see this list, never the submitted one.
//
// When the terminal state reports failed files, the destination is re-listed
// and every submitted hash missing from it is recorded as harmonized so later
// runs stop resubmitting it.
func (m *TransferMachine) SaveFiles(ctx context.Context, files []services.RemoteFile, destFolderID, shareID string) ([]services.RemoteFile, error) {
	if len(files) == 0 {
		return nil, nil
	}

	fileIDs := make([]string, 0, len(files))
	for _, file := range files {
		fileIDs = append(fileIDs, file.ID)
	}

	jobID, err := m.provider.CreateSaveJob(ctx, fileIDs, destFolderID, shareID)
	if err != nil {
		return nil, fmt.Errorf("%w: submit: %v", shared.ErrTransferFailed, err)
	}

	state, err := m.runJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if state.FailedCount == 0 {
		return files, nil
	}

	return m.recordRejected(ctx, files, destFolderID)
}

// DeleteFiles submits a bulk delete and drives it to completion.
func (m *TransferMachine) DeleteFiles(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}

	jobID, err := m.provider.CreateDeleteJob(ctx, fileIDs)
	if err != nil {
		return fmt.Errorf("%w: submit delete: %v", shared.ErrTransferFailed, err)
	}

	_, err = m.runJob(ctx, jobID)
	return err
}

// EmptyRecycleBin submits an empty-recycle-bin job and drives it to completion.
func (m *TransferMachine) EmptyRecycleBin(ctx context.Context) error {
	jobID, err := m.provider.CreateEmptyRecycleJob(ctx)
	if err != nil {
		return fmt.Errorf("%w: submit recycle cleanup: %v", shared.ErrTransferFailed, err)
	}

	_, err = m.runJob(ctx, jobID)
	return err
}

// errJobPending marks a poll that must loop again.
var errJobPending = errors.New("job still running")

// runJob polls jobID until it reaches a terminal state, resolving conflicts
// with a fixed keep-existing policy as they appear. The loop is bounded: the
// poll budget covers the whole submit/poll/conflict cycle, and exhausting it
// is a hard failure.
func (m *TransferMachine) runJob(ctx context.Context, jobID string) (*services.JobState, error) {
	var final *services.JobState

	poll := func() error {
		state, err := m.provider.PollJob(ctx, jobID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: poll: %v", shared.ErrTransferFailed, err))
		}

		switch state.Status {
		case services.JobDone:
			final = state
			return nil
		case services.JobConflict:
			if err := m.resolveConflicts(ctx, jobID); err != nil {
				return backoff.Permanent(err)
			}
			return errJobPending
		default:
			return errJobPending
		}
	}

	// WithMaxRetries counts retries after the first attempt, so maxPolls-1
	// makes maxPolls the total poll budget.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.pollDelay), m.maxPolls-1),
		ctx,
	)

	if err := backoff.Retry(poll, policy); err != nil {
		if errors.Is(err, errJobPending) {
			return nil, fmt.Errorf("%w: job %s did not finish within %d polls", shared.ErrTransferFailed, jobID, m.maxPolls)
		}
		return nil, err
	}

	return final, nil
}

// resolveConflicts fetches the conflicting file list and answers every entry
// with keep-existing, letting the job resume.
func (m *TransferMachine) resolveConflicts(ctx context.Context, jobID string) error {
	conflicts, err := m.provider.GetConflicts(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: fetch conflicts: %v", shared.ErrConflictUnresolved, err)
	}

	if m.logger != nil {
		m.logger.Info("resolving transfer conflicts", "job", jobID, "conflicts", len(conflicts))
	}

	resolutions := make([]services.Resolution, 0, len(conflicts))
	for _, conflict := range conflicts {
		resolutions = append(resolutions, services.Resolution{
			FileID: conflict.FileID,
			Action: services.ResolutionKeepExisting,
		})
	}

	if err := m.provider.ResolveConflicts(ctx, jobID, resolutions); err != nil {
		return fmt.Errorf("%w: submit resolutions: %v", shared.ErrConflictUnresolved, err)
	}

	return nil
}

// recordRejected re-lists the destination and splits the submitted batch into
// accepted and rejected files. Rejected hashes are flagged as harmonized; the
// accepted files are returned. A file with no content hash cannot be checked
// and is counted as accepted.
func (m *TransferMachine) recordRejected(ctx context.Context, files []services.RemoteFile, destFolderID string) ([]services.RemoteFile, error) {
	listing, err := m.provider.ListFolder(ctx, destFolderID)
	if err != nil {
		return nil, fmt.Errorf("%w: post-save listing: %v", shared.ErrTransferFailed, err)
	}

	saved := make(map[string]struct{}, len(listing.Files))
	for _, file := range listing.Files {
		if file.Hash != "" {
			saved[file.Hash] = struct{}{}
		}
	}

	var accepted []services.RemoteFile
	for _, file := range files {
		if file.Hash == "" {
			accepted = append(accepted, file)
			continue
		}
		if _, ok := saved[file.Hash]; ok {
			accepted = append(accepted, file)
			continue
		}
		if m.harmonized == nil {
			continue
		}
		if err := m.harmonized.Add(file.Hash); err != nil && m.logger != nil {
			m.logger.Warn("failed to record harmonized hash", "hash", file.Hash, "error", err)
		} else if m.logger != nil {
			m.logger.Info("recorded harmonized content", "name", file.Name, "hash", file.Hash)
		}
	}

	return accepted, nil
}
