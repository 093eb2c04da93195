// ABOUTME: HTTP client for the remote execution sandbox that runs generated projects server-side.
// ABOUTME: Covers the file read/write surface plus preview URL, resource stats, stop, and delete.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// FileEntry is one entry in a directory listing.
type FileEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Stats reports the sandbox's resource usage.
type Stats struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes int64   `json:"memory_bytes"`
	DiskBytes   int64   `json:"disk_bytes"`
	Uptime      int64   `json:"uptime_seconds"`
}

// Client talks to one sandbox instance. All operations are simple
// request/response; the sandbox id scopes every path.
type Client struct {
	baseURL string
	id      string
	http    *http.Client
}

// NewClient creates a Client for the sandbox with the given id. A nil
// httpClient gets a short-timeout default, since sandbox file operations
// are small and local to the cluster.
func NewClient(baseURL, id string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, id: id, http: httpClient}
}

// ID returns the sandbox id this client is bound to.
func (c *Client) ID() string { return c.id }

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFile writes a single file into the sandbox filesystem.
func (c *Client) WriteFile(ctx context.Context, path, content string) error {
	return c.post(ctx, "/files/write", writeFileRequest{Path: path, Content: content}, nil)
}

// WriteBatch writes many files in one round trip. The sandbox applies the
// batch non-atomically; callers that need all-or-nothing must verify.
func (c *Client) WriteBatch(ctx context.Context, files map[string]string) error {
	batch := make([]writeFileRequest, 0, len(files))
	for path, content := range files {
		batch = append(batch, writeFileRequest{Path: path, Content: content})
	}
	return c.post(ctx, "/files/batch", struct {
		Files []writeFileRequest `json:"files"`
	}{batch}, nil)
}

// WriteBlob satisfies the reconciler's blob store so document/binary
// outputs land in the sandbox filesystem instead of the text tree.
func (c *Client) WriteBlob(ctx context.Context, path string, data []byte) error {
	return c.WriteFile(ctx, path, string(data))
}

// ReadFile reads one file back out of the sandbox.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	q := url.Values{"path": {path}}
	if err := c.get(ctx, "/files/read?"+q.Encode(), &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// ListDir lists a directory in the sandbox filesystem.
func (c *Client) ListDir(ctx context.Context, path string) ([]FileEntry, error) {
	var out struct {
		Entries []FileEntry `json:"entries"`
	}
	q := url.Values{"path": {path}}
	if err := c.get(ctx, "/files/list?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// PreviewURL returns the externally reachable URL of the sandbox's dev
// server, or an error if no server is running.
func (c *Client) PreviewURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "/preview-url", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("sandbox %s has no running server", c.id)
	}
	return out.URL, nil
}

// Stats returns the sandbox's current resource usage.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.get(ctx, "/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stop halts the sandbox's running processes without destroying it.
func (c *Client) Stop(ctx context.Context) error {
	return c.post(ctx, "/stop", nil, nil)
}

// Delete destroys the sandbox and releases its resources.
func (c *Client) Delete(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(""), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/sandboxes/%s%s", c.baseURL, c.id, path)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding sandbox request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sandbox %s: %w", c.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sandbox %s: %s returned %d: %s",
			c.id, req.URL.Path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
