// ABOUTME: HTTP client for the repair service.
// ABOUTME: One request, one response; transport failures surface verbatim with no silent retry.
package autofix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vitrine-labs/vitrine/capture"
)

// RepairRequest is the outbound fix request.
type RepairRequest struct {
	ProjectID       string            `json:"project_id"`
	ErrorMessage    string            `json:"error_message"`
	StackTrace      string            `json:"stack_trace,omitempty"`
	CollectedErrors []capture.Error   `json:"collected_errors"`
	ContextLogs     []string          `json:"context_logs"`
	ProjectFiles    map[string]string `json:"project_files"`
}

// FilePatch is one repaired file returned by the service.
type FilePatch struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RepairResult is the repair service's response.
type RepairResult struct {
	Success       bool        `json:"success"`
	ErrorFixed    bool        `json:"error_fixed"`
	FilesModified []string    `json:"files_modified"`
	Patches       []FilePatch `json:"patches"`
	Attempts      int         `json:"attempts"`
	Message       string      `json:"message"`
}

// Repairer submits a repair request and returns the service's verdict.
type Repairer interface {
	Repair(ctx context.Context, req RepairRequest) (*RepairResult, error)
}

// Client is the HTTP Repairer. Failures are reported to the caller as-is;
// retrying a failed fix is a user decision, never the client's.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the repair service at baseURL. A nil
// httpClient gets a dedicated client with a generous timeout, since repair
// requests routinely take tens of seconds.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Repair POSTs the request to the service's fix endpoint.
func (c *Client) Repair(ctx context.Context, req RepairRequest) (*RepairResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding repair request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fix", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building repair request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("repair service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("repair service returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var result RepairResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding repair response: %w", err)
	}
	return &result, nil
}
