// Package catalog is a thin REST/JSON client for the remote bookkeeping
// service (the "remote catalog" of the spec: the canonical external
// registry of datasets, blocks, and files).
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmwm/dbs3-uploader/internal/block"
)

// Client talks to the remote catalog's two operations: insertBulkBlock and
// listBlocks. Each worker in the pool owns its own Client instance and
// never shares it with another worker or with the orchestrator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new catalog Client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// InsertBulkBlock performs an idempotent insert of a serialized block. A
// duplicate insert returns an *APIError whose message contains
// "Block <name> already exists" — callers use IsAlreadyExists to recognize
// this and promote it to a successful outcome.
func (c *Client) InsertBulkBlock(ctx context.Context, payload block.Payload) error {
	return c.do(ctx, http.MethodPost, "/dbs/bulkblocks", payload, nil)
}

// blockExistence is the decoded response shape for a listBlocks existence
// probe.
type blockExistence struct {
	BlockName string `json:"block_name"`
}

// ListBlocks queries the remote catalog for a block by name and reports
// whether it exists. Used by straggler reconciliation to resolve blocks
// left in the "check" state by an earlier ambiguous response.
func (c *Client) ListBlocks(ctx context.Context, name string) (bool, error) {
	var results []blockExistence
	if err := c.do(ctx, http.MethodGet, "/dbs/blocks?block_name="+url.QueryEscape(name), nil, &results); err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
