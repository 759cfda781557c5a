package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maruel/jsonstore/internal/documents"
	"github.com/maruel/jsonstore/internal/filter"
	"github.com/maruel/jsonstore/internal/patch"
	"github.com/maruel/jsonstore/internal/server/dto"
	"github.com/maruel/jsonstore/internal/storage"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"not found", fmt.Errorf("get: %w", storage.ErrNotFound), http.StatusNotFound, dto.ErrorCodeNotFound, "document not found"},
		{"already exists", fmt.Errorf("%w: 1234", storage.ErrAlreadyExists), http.StatusBadRequest, dto.ErrorCodeAlreadyExists, "document already exists"},
		{"object not found", &patch.Error{Kind: patch.ObjectNotFound, Index: -1}, http.StatusNotFound, dto.ErrorCodeNotFound, "document not found"},
		{"patch", &patch.Error{Kind: patch.PathSegmentNotFound, Index: 1, Path: "/a/b", Segment: "a"}, http.StatusBadRequest, dto.ErrorCodePatchFailed, "Path segment 'a' not found."},
		{"filter", fmt.Errorf("%w: bad token", filter.ErrInvalid), http.StatusBadRequest, dto.ErrorCodeInvalidFilter, "invalid filter expression: bad token"},
		{"filter required", documents.ErrFilterRequired, http.StatusBadRequest, dto.ErrorCodeMissingField, "missing required field: where"},
		{"decode", &storage.DecodeError{Path: "/x.json", Err: errors.New("eof")}, http.StatusInternalServerError, dto.ErrorCodeStorageError, "stored document is corrupt"},
		{"io", &storage.IOError{Op: "read", Path: "/x.json", Err: fs.ErrPermission}, http.StatusInternalServerError, dto.ErrorCodeStorageError, "storage operation failed"},
		{"other", errors.New("secret detail"), http.StatusInternalServerError, dto.ErrorCodeInternal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ews dto.ErrorWithStatus
			require.ErrorAs(t, apiError(tt.err), &ews)
			assert.Equal(t, tt.status, ews.StatusCode())
			assert.Equal(t, tt.code, ews.Code())
			assert.Equal(t, tt.message, ews.Error())
			assert.ErrorIs(t, apiError(tt.err), tt.err)
		})
	}
}
