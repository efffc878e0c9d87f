// Package remote provides the HTTP client for the remote collection service.
// The remote is an opaque CRUD backend reachable only while online; all
// richer behavior (querying, indexing, auth) lives on its side.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/EMMADEKO10/restaurant-sub000/internal/errors"
	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
)

// Client talks to the remote collection service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchAll lists all records of a collection.
func (c *Client) FetchAll(ctx context.Context, collection models.Collection) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectionURL(collection), nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}

	var out []map[string]any
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new record and returns the server's canonical version,
// including its assigned id.
func (c *Client) Create(ctx context.Context, collection models.Collection, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL(collection), bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out map[string]any
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if id, _ := out["id"].(string); id == "" {
		return nil, apperrors.New(apperrors.ErrRemoteRejected, "create response is missing an id")
	}
	return out, nil
}

// Update puts changed fields onto an existing record.
func (c *Client) Update(ctx context.Context, collection models.Collection, id string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode payload", err)
	}

	url := fmt.Sprintf("%s/%s", c.collectionURL(collection), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// Ping probes the service. Used by the connectivity bridge as its online
// signal.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}
	return c.do(req, nil)
}

func (c *Client) collectionURL(collection models.Collection) string {
	return fmt.Sprintf("%s/api/%s", c.baseURL, collection)
}

// do executes a request, decoding a JSON body into out when provided.
// Transport failures map to NETWORK_ERROR, non-2xx statuses to
// REMOTE_REJECTED; the sync engine treats both as retryable.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.New(apperrors.ErrRemoteRejected,
			fmt.Sprintf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteRejected, "failed to decode response", err)
	}
	return nil
}
