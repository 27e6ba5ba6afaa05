package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// HTTPClient is the client surface Client needs from net/http.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the activity-step endpoint over HTTP. Transport errors,
// timeouts and non-2xx responses come back as errors; the orchestrator
// maps them all to a failed step.
type Client struct {
	url    string
	client HTTPClient
}

// NewClient constructs a Client for the given endpoint. client may be
// nil, in which case http.DefaultClient is used; the orchestrator bounds
// each call with a context deadline.
func NewClient(url string, client HTTPClient) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{url: url, client: client}
}

// Call posts the record to the activity endpoint and decodes the
// structured result.
func (c *Client) Call(ctx context.Context, record saga.TransactionRecord) (saga.ActivityResult, error) {
	body, err := record.Marshal()
	if err != nil {
		return saga.ActivityResult{}, fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return saga.ActivityResult{}, fmt.Errorf("build activity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return saga.ActivityResult{}, fmt.Errorf("call activity step: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return saga.ActivityResult{}, fmt.Errorf("activity step returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return saga.ActivityResult{}, fmt.Errorf("read activity response: %w", err)
	}

	var result saga.ActivityResult
	if err := json.Unmarshal(data, &result); err != nil {
		return saga.ActivityResult{}, fmt.Errorf("decode activity response: %w", err)
	}
	return result, nil
}
