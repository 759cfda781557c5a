// Package apiclient is a Go client for the jsonstore HTTP API.
//
// Requests that fail with a network error, 429 or a 5xx status are retried
// with exponential backoff. Create, patch and merge are only retried on 429
// and 503, which the server returns before doing any work.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/server/dto"
)

// Error is an error response returned by the server.
type Error struct {
	StatusCode int
	Code       dto.ErrorCode
	Message    string
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// Client talks to a jsonstore server.
type Client struct {
	base       *url.URL
	http       *http.Client
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries sets the maximum number of retries per request.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackOff sets the retry schedule factory. It is called once per request.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:       u,
		http:       &http.Client{Timeout: time.Minute},
		maxRetries: 5,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns document id.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error) {
	out := &dto.DocumentResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/json/"+id.String(), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores data as a new document.
func (c *Client) Create(ctx context.Context, data map[string]jsonval.Value) (*dto.DocumentResponse, error) {
	if data == nil {
		data = map[string]jsonval.Value{}
	}
	out := &dto.DocumentResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/json", nil, &dto.CreateDocumentRequest{Data: data}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Patch applies ops to document id.
func (c *Client) Patch(ctx context.Context, id uuid.UUID, ops []dto.PatchOperation) (*dto.DocumentResponse, error) {
	if ops == nil {
		ops = []dto.PatchOperation{}
	}
	out := &dto.DocumentResponse{}
	if err := c.do(ctx, http.MethodPatch, "/api/json/"+id.String(), nil, &dto.PatchDocumentRequest{Operations: ops}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge applies a JSON merge patch to document id.
func (c *Client) Merge(ctx context.Context, id uuid.UUID, patch json.RawMessage) (*dto.DocumentResponse, error) {
	out := &dto.DocumentResponse{}
	if err := c.do(ctx, http.MethodPatch, "/api/json/"+id.String()+"/merge", nil, &dto.MergePatchRequest{Patch: patch}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete deletes document id.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/json/"+id.String(), nil, nil, nil)
}

// Search returns the documents matching where. An empty where returns all
// documents.
func (c *Client) Search(ctx context.Context, where string) ([]dto.DocumentResponse, error) {
	out := &dto.ListDocumentsResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/json", whereQuery(where), nil, out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// DeleteWhere deletes the documents matching where and returns how many were
// deleted.
func (c *Client) DeleteWhere(ctx context.Context, where string) (int, error) {
	out := &dto.DeleteWhereResponse{}
	if err := c.do(ctx, http.MethodDelete, "/api/json", whereQuery(where), nil, out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// Count returns the number of stored documents.
func (c *Client) Count(ctx context.Context) (int, error) {
	out := &dto.CountResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/json/count", nil, nil, out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Health returns the server health.
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	out := &dto.HealthResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func whereQuery(where string) url.Values {
	if where == "" {
		return nil
	}
	return url.Values{"where": {where}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	idempotent := method == http.MethodGet || method == http.MethodDelete

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil || !idempotent {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 400 {
			apiErr := readError(resp)
			if retryable(resp.StatusCode, idempotent) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	notify := func(err error, d time.Duration) {
		slog.DebugContext(ctx, "Retrying request", "method", method, "path", path, "err", err, "in", d)
	}
	return backoff.RetryNotify(op, b, notify)
}

func retryable(status int, idempotent bool) bool {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return true
	case status >= 500:
		return idempotent
	default:
		return false
	}
}

func readError(resp *http.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var er dto.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error.Code != "" {
		e.Code = er.Error.Code
		e.Message = er.Error.Message
		e.Details = er.Details
	} else {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
	}
	return e
}
