// HTTP implementation of [Provider]
//
// The pan API wraps every response in a {code, message, data} envelope; a
// non-zero code is an application-level failure even on HTTP 200.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// Provider application codes surfaced through the response envelope.
const (
	codeOK             = 0
	codeShareNotFound  = 41003
	codeFolderNotFound = 41006
	codeShareModerated = 41022
)

// Provider-side batch job status values.
const (
	panJobQueued   = 0
	panJobRunning  = 1
	panJobDone     = 2
	panJobConflict = 3
)

// PanService implements [Provider] over the pan HTTP API, bound to one
// account credential.
type PanService struct {
	baseURL    string
	credential string
	httpClient *http.Client
}

// NewPanService creates a provider client for the given base URL and account
// credential. A nil client falls back to [http.DefaultClient].
func NewPanService(baseURL, credential string, client *http.Client) *PanService {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &PanService{
		baseURL:    baseURL,
		credential: credential,
		httpClient: client,
	}
}

type panEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type panFile struct {
	FileID string `json:"file_id"`
	Name   string `json:"file_name"`
	Hash   string `json:"content_hash"`
	Size   int64  `json:"size"`
	Dir    bool   `json:"dir"`
}

type panListing struct {
	Items []panFile `json:"items"`
}

type panJobState struct {
	Status      int `json:"status"`
	FailedCount int `json:"failed_count"`
}

type panConflict struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// doRequest performs an authenticated request and decodes the envelope's data
// payload into result. Envelope codes map onto the shared sentinel errors.
func (s *PanService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body any, result any) error {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Cookie", s.credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var envelope panEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if err := envelopeError(envelope); err != nil {
		return err
	}

	if result != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

func envelopeError(envelope panEnvelope) error {
	switch envelope.Code {
	case codeOK:
		return nil
	case codeShareModerated:
		return fmt.Errorf("%w: %s", shared.ErrShareModerated, envelope.Message)
	case codeShareNotFound:
		return fmt.Errorf("%w: %s", shared.ErrShareNotFound, envelope.Message)
	case codeFolderNotFound:
		return fmt.Errorf("%w: %s", shared.ErrFolderNotFound, envelope.Message)
	default:
		return fmt.Errorf("%w: code %d: %s", shared.ErrAPIRequest, envelope.Code, envelope.Message)
	}
}

func toListing(pl panListing) *Listing {
	listing := &Listing{}
	for _, item := range pl.Items {
		file := RemoteFile{
			ID:   item.FileID,
			Name: item.Name,
			Hash: item.Hash,
			Size: item.Size,
		}
		if item.Dir {
			listing.Folders = append(listing.Folders, file)
		} else {
			listing.Files = append(listing.Files, file)
		}
	}
	return listing
}

// ListShareFolder lists one folder of a remote share.
func (s *PanService) ListShareFolder(ctx context.Context, shareID, folderID string, mode models.ShareMode, accessCode string) (*Listing, error) {
	query := url.Values{}
	query.Set("share_id", shareID)
	query.Set("folder_id", folderID)
	query.Set("share_mode", strconv.Itoa(int(mode)))
	if mode == models.ShareModeAccessCode {
		query.Set("passcode", accessCode)
	}

	var pl panListing
	if err := s.doRequest(ctx, http.MethodGet, "/share/list", query, nil, &pl); err != nil {
		return nil, err
	}
	return toListing(pl), nil
}

// ListFolder lists one folder of the bound account's own storage.
func (s *PanService) ListFolder(ctx context.Context, folderID string) (*Listing, error) {
	query := url.Values{}
	query.Set("folder_id", folderID)

	var pl panListing
	if err := s.doRequest(ctx, http.MethodGet, "/folder/list", query, nil, &pl); err != nil {
		return nil, err
	}
	return toListing(pl), nil
}

type panJobID struct {
	JobID string `json:"job_id"`
}

// CreateSaveJob submits a batch save of share files into the destination folder.
func (s *PanService) CreateSaveJob(ctx context.Context, fileIDs []string, destFolderID, shareID string) (string, error) {
	body := map[string]any{
		"share_id":       shareID,
		"dest_folder_id": destFolderID,
		"file_ids":       fileIDs,
	}

	var job panJobID
	if err := s.doRequest(ctx, http.MethodPost, "/batch/save", nil, body, &job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// CreateDeleteJob submits a batch delete of the given files.
func (s *PanService) CreateDeleteJob(ctx context.Context, fileIDs []string) (string, error) {
	body := map[string]any{"file_ids": fileIDs}

	var job panJobID
	if err := s.doRequest(ctx, http.MethodPost, "/batch/delete", nil, body, &job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// CreateEmptyRecycleJob submits an empty-recycle-bin job.
func (s *PanService) CreateEmptyRecycleJob(ctx context.Context) (string, error) {
	var job panJobID
	if err := s.doRequest(ctx, http.MethodPost, "/recycle/empty", nil, map[string]any{}, &job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// PollJob queries the state of a batch job.
func (s *PanService) PollJob(ctx context.Context, jobID string) (*JobState, error) {
	query := url.Values{}
	query.Set("job_id", jobID)

	var state panJobState
	if err := s.doRequest(ctx, http.MethodGet, "/batch/status", query, nil, &state); err != nil {
		return nil, err
	}

	js := &JobState{FailedCount: state.FailedCount}
	switch state.Status {
	case panJobQueued:
		js.Status = JobQueued
	case panJobRunning:
		js.Status = JobRunning
	case panJobDone:
		js.Status = JobDone
	case panJobConflict:
		js.Status = JobConflict
	default:
		return nil, fmt.Errorf("%w: unknown job status %d", shared.ErrAPIRequest, state.Status)
	}
	return js, nil
}

// GetConflicts fetches the conflicting file list of a job.
func (s *PanService) GetConflicts(ctx context.Context, jobID string) ([]Conflict, error) {
	query := url.Values{}
	query.Set("job_id", jobID)

	var items []panConflict
	if err := s.doRequest(ctx, http.MethodGet, "/batch/conflicts", query, nil, &items); err != nil {
		return nil, err
	}

	conflicts := make([]Conflict, 0, len(items))
	for _, item := range items {
		conflicts = append(conflicts, Conflict{FileID: item.FileID, FileName: item.FileName})
	}
	return conflicts, nil
}

// ResolveConflicts submits conflict resolutions for a job.
func (s *PanService) ResolveConflicts(ctx context.Context, jobID string, resolutions []Resolution) error {
	items := make([]map[string]string, 0, len(resolutions))
	for _, res := range resolutions {
		items = append(items, map[string]string{
			"file_id": res.FileID,
			"action":  res.Action,
		})
	}

	body := map[string]any{
		"job_id":      jobID,
		"resolutions": items,
	}

	return s.doRequest(ctx, http.MethodPost, "/batch/resolve", nil, body, nil)
}

// Rename renames a single file.
func (s *PanService) Rename(ctx context.Context, fileID, newName string) error {
	body := map[string]any{
		"file_id":   fileID,
		"file_name": newName,
	}
	return s.doRequest(ctx, http.MethodPost, "/file/rename", nil, body, nil)
}

type panFolderID struct {
	FolderID string `json:"folder_id"`
}

// CreateFolder creates a folder under parentID and returns its id.
func (s *PanService) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	body := map[string]any{
		"file_name": name,
		"parent_id": parentID,
	}

	var folder panFolderID
	if err := s.doRequest(ctx, http.MethodPost, "/folder/create", nil, body, &folder); err != nil {
		return "", err
	}
	return folder.FolderID, nil
}
