package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maruel/jsonstore/internal/documents"
	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/server"
	"github.com/maruel/jsonstore/internal/server/dto"
	"github.com/maruel/jsonstore/internal/storage"
)

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", WithBackOff(fastBackOff), WithRetries(3))
	require.NoError(t, err)
	return c
}

func TestClientAgainstServer(t *testing.T) {
	ctx := t.Context()
	store, err := storage.NewFileStore("/data", storage.NewFileSystem(afero.NewMemMapFs()))
	require.NoError(t, err)
	c := newClient(t, server.NewRouter(documents.NewService(store), &server.Config{Version: "v"}))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)

	doc, err := c.Create(ctx, map[string]jsonval.Value{"a": jsonval.IntValue(1)})
	require.NoError(t, err)
	id := uuid.MustParse(doc.ID)

	doc, err = c.Patch(ctx, id, []dto.PatchOperation{
		{Op: "add", Path: "/b", Value: jsonval.StringValue("x")},
		{Op: "add", Path: "/n"},
	})
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Data["b"].Str())
	assert.True(t, doc.Data["n"].IsNull())

	doc, err = c.Merge(ctx, id, json.RawMessage(`{"a":null}`))
	require.NoError(t, err)
	assert.NotContains(t, doc.Data, "a")

	docs, err := c.Search(ctx, `data.b == "x"`)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.Patch(ctx, id, []dto.PatchOperation{{Op: "remove", Path: "/zz"}})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, dto.ErrorCodePatchFailed, apiErr.Code)
	assert.Equal(t, "path_not_found_for_remove", apiErr.Details["kind"])

	require.NoError(t, c.Delete(ctx, id))
	_, err = c.Get(ctx, id)
	assert.True(t, IsNotFound(err))

	_, err = c.Create(ctx, nil)
	require.NoError(t, err)
	deleted, err := c.DeleteWhere(ctx, "true")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestClientRetries(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(dto.CountResponse{Count: 7})
	}))
	n, err := c.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	_, err := c.Count(t.Context())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "down", apiErr.Message)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClientNoRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(*Client) error
	}{
		{"client error", http.StatusBadRequest, func(c *Client) error {
			_, err := c.Count(t.Context())
			return err
		}},
		{"create on 500", http.StatusInternalServerError, func(c *Client) error {
			_, err := c.Create(t.Context(), nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: dto.ErrorDetails{Code: dto.ErrorCodeInternal, Message: "no"}})
			}))
			err := tt.call(c)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr), "%v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "no", apiErr.Message)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestNewInvalidURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://")
	assert.Error(t, err)
}
