package dto

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	t.Run("NewAPIError", func(t *testing.T) {
		err := NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "document not found")
		assert.Equal(t, http.StatusNotFound, err.StatusCode())
		assert.Equal(t, ErrorCodeNotFound, err.Code())
		assert.Equal(t, "document not found", err.Error())
		assert.NotNil(t, err.Details())
	})
	t.Run("WithDetails initializes nil map", func(t *testing.T) {
		err := (&APIError{code: ErrorCodePatchFailed}).WithDetails(map[string]any{"kind": "InvalidPath"})
		assert.Equal(t, "InvalidPath", err.Details()["kind"])
	})
	t.Run("Wrap hides cause from message", func(t *testing.T) {
		cause := errors.New("disk on fire")
		err := Storage("failed to read document", cause)
		assert.Equal(t, "failed to read document", err.Error())
		assert.ErrorIs(t, err, cause)
	})
	t.Run("ErrorWithStatus", func(t *testing.T) {
		var ews ErrorWithStatus
		assert.True(t, errors.As(error(PayloadTooLarge(10)), &ews))
		assert.Equal(t, http.StatusRequestEntityTooLarge, ews.StatusCode())
		assert.Equal(t, int64(10), ews.Details()["limit"])
	})
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   ErrorCode
	}{
		{"NotFound", NotFound("document"), http.StatusNotFound, ErrorCodeNotFound},
		{"BadRequest", BadRequest("nope"), http.StatusBadRequest, ErrorCodeValidationFailed},
		{"MissingField", MissingField("data"), http.StatusBadRequest, ErrorCodeMissingField},
		{"InvalidFormat", InvalidFormat("id", "x"), http.StatusBadRequest, ErrorCodeInvalidFormat},
		{"AlreadyExists", AlreadyExists("document"), http.StatusBadRequest, ErrorCodeAlreadyExists},
		{"Internal", Internal("boom"), http.StatusInternalServerError, ErrorCodeInternal},
		{"RateLimitExceeded", RateLimitExceeded(3), http.StatusTooManyRequests, ErrorCodeRateLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
			assert.Equal(t, tt.code, tt.err.Code())
		})
	}
}

func TestValidate(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name string
		req  Validatable
		code ErrorCode
	}{
		{"create without data", &CreateDocumentRequest{}, ErrorCodeMissingField},
		{"get without id", &GetDocumentRequest{}, ErrorCodeMissingField},
		{"patch without ops", &PatchDocumentRequest{ID: id}, ErrorCodeMissingField},
		{"merge without patch", &MergePatchRequest{ID: id}, ErrorCodeMissingField},
		{"delete where blank", &DeleteWhereRequest{Where: "  "}, ErrorCodeMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ews ErrorWithStatus
			err := tt.req.Validate()
			if assert.True(t, errors.As(err, &ews)) {
				assert.Equal(t, tt.code, ews.Code())
			}
		})
	}
	assert.NoError(t, (&PatchDocumentRequest{ID: id, Operations: []PatchOperation{}}).Validate())
	assert.NoError(t, (&ListDocumentsRequest{}).Validate())
}
