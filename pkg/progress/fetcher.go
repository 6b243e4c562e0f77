package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRemote wraps errors reported by the progress endpoint itself.
var ErrRemote = errors.New("progress: remote error")

// Fetcher reads the current status of a job.
type Fetcher interface {
	Fetch(ctx context.Context, jobID string) (Status, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, jobID string) (Status, error)

// Fetch delegates to the underlying function.
func (fn FetcherFunc) Fetch(ctx context.Context, jobID string) (Status, error) {
	return fn(ctx, jobID)
}

// ProgressPath is the endpoint path prefix, joined with the job id.
const ProgressPath = "/dfr_data_tools/job_progress/"

// HTTPFetcher reads job status over HTTP.
type HTTPFetcher struct {
	base   string
	client *http.Client
}

// NewHTTPFetcher targets base (scheme and host, optional path prefix). A nil
// client uses a 10s timeout default.
func NewHTTPFetcher(base string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{base: strings.TrimRight(base, "/"), client: client}
}

// Fetch issues GET {base}/dfr_data_tools/job_progress/{id}. Both a bare status
// object and a JSON-RPC style {"result": {...}} envelope are accepted.
func (f *HTTPFetcher) Fetch(ctx context.Context, jobID string) (Status, error) {
	endpoint := f.base + ProgressPath + url.PathEscape(strings.TrimSpace(jobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{}, fmt.Errorf("progress: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("progress: fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Status{}, fmt.Errorf("progress: fetch %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Status
		Result *Status `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Status{}, fmt.Errorf("progress: decode %s: %w", endpoint, err)
	}
	st := envelope.Status
	if envelope.Result != nil {
		st = *envelope.Result
	}
	if st.Error != "" {
		return st, fmt.Errorf("%w: %s", ErrRemote, st.Error)
	}
	return st, nil
}
