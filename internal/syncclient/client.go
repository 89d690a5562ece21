package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/models"
)

const (
	TokenHeader  = "X-Sync-Token"
	SourceHeader = "X-Source"
	SourceLAN    = "lan-server"

	DefaultTimeout = 30 * time.Second
	PingTimeout    = 5 * time.Second
)

// SyncError wraps a failed exchange with the remote side.
type SyncError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync %s: status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.Operation, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Client pushes records and deletions to the cloud receive endpoints.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set(TokenHeader, c.token)
	req.Header.Set(SourceHeader, SourceLAN)
	req.Header.Set("Content-Type", "application/json")
}

func newSyncError(op string, statusCode int, body []byte) *SyncError {
	msg := string(body)
	if len(body) > 200 {
		msg = string(body[:200]) + "..."
	}
	return &SyncError{
		Operation:  op,
		StatusCode: statusCode,
		Err:        fmt.Errorf("HTTP %d: %s", statusCode, msg),
	}
}

// PushRecords sends a batch of flattened records to the receive endpoint.
func (c *Client) PushRecords(ctx context.Context, table string, records []models.Payload) (*ReceiveResponse, error) {
	var result ReceiveResponse
	reqURL := fmt.Sprintf("%s/api/v1/sync/receive/%s", c.baseURL, url.PathEscape(table))
	if err := c.do(ctx, "push_records", http.MethodPost, reqURL, "", records, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PushDeletions notifies the remote side of soft-deleted ids.
func (c *Client) PushDeletions(ctx context.Context, table string, ids []string) (*DeleteResponse, error) {
	var result DeleteResponse
	reqURL := fmt.Sprintf("%s/api/v1/sync/delete/%s", c.baseURL, url.PathEscape(table))
	if err := c.do(ctx, "push_deletions", http.MethodDelete, reqURL, "", &DeleteRequest{IDs: ids}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TriggerCycle asks a running server to run one cycle inline and returns its
// summary. bearer is an admin operator token.
func (c *Client) TriggerCycle(ctx context.Context, bearer string) (*models.SyncSummary, error) {
	var result models.SyncSummary
	reqURL := c.baseURL + "/api/v1/sync/trigger"
	if err := c.do(ctx, "trigger", http.MethodPost, reqURL, bearer, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, op, method, reqURL, bearer string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &SyncError{Operation: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return &SyncError{Operation: op, Err: err}
	}
	c.setHeaders(req)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SyncError{Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return newSyncError(op, resp.StatusCode, respBody)
	}

	// A 2xx is an acknowledgement even when the body does not decode.
	_ = json.NewDecoder(resp.Body).Decode(out)
	return nil
}
