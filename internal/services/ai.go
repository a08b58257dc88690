// AI text service implementation of [AIClient] over an OpenAI-style
// chat-completions endpoint.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudmirror/sharesync/internal/shared"
)

const defaultAIBatchSize = 50

// OpenAIService implements [AIClient] against a chat-completions API.
type OpenAIService struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	httpClient *http.Client
}

// NewOpenAIService creates an AI filter client. A batchSize <= 0 falls back
// to the default; a nil client falls back to [http.DefaultClient].
func NewOpenAIService(baseURL, apiKey, model string, batchSize int, client *http.Client) *OpenAIService {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if batchSize <= 0 {
		batchSize = defaultAIBatchSize
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &OpenAIService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		batchSize:  batchSize,
		httpClient: client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// FilterFiles asks the model which of the candidate files satisfy the filter
// description and returns their ids. Candidates are sent in bounded batches;
// any malformed model reply fails the whole call so the engine can fall back
// to running unfiltered.
func (s *OpenAIService) FilterFiles(ctx context.Context, resource string, files []RemoteFile, description string) ([]string, error) {
	var kept []string

	for start := 0; start < len(files); start += s.batchSize {
		end := start + s.batchSize
		if end > len(files) {
			end = len(files)
		}

		ids, err := s.filterBatch(ctx, resource, files[start:end], description)
		if err != nil {
			return nil, err
		}
		kept = append(kept, ids...)
	}

	return kept, nil
}

func (s *OpenAIService) filterBatch(ctx context.Context, resource string, files []RemoteFile, description string) ([]string, error) {
	var sb strings.Builder
	for _, file := range files {
		fmt.Fprintf(&sb, "%s\t%s\n", file.ID, file.Name)
	}

	prompt := fmt.Sprintf(
		"You are filtering files for the resource %q.\n"+
			"Filter rule: %s\n"+
			"Each line below is one file as \"id<TAB>name\".\n%s\n"+
			"Reply with a JSON array containing only the ids of files that satisfy the rule. Reply with the JSON array and nothing else.",
		resource, description, sb.String(),
	)

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", shared.ErrAPIRequest)
	}

	return parseIDList(chat.Choices[0].Message.Content)
}

// parseIDList extracts the JSON id array from a model reply, tolerating
// surrounding prose or a fenced code block.
func parseIDList(content string) ([]string, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in completion", shared.ErrAPIRequest)
	}

	var ids []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &ids); err != nil {
		return nil, fmt.Errorf("%w: malformed id array: %v", shared.ErrAPIRequest, err)
	}
	return ids, nil
}
