package handlers

import (
	"errors"
	"net/http"

	"github.com/maruel/jsonstore/internal/documents"
	"github.com/maruel/jsonstore/internal/filter"
	"github.com/maruel/jsonstore/internal/patch"
	"github.com/maruel/jsonstore/internal/server/dto"
	"github.com/maruel/jsonstore/internal/storage"
)

// apiError converts a service error into a dto.APIError carrying the HTTP
// status to return.
func apiError(err error) error {
	var (
		patchErr  *patch.Error
		decodeErr *storage.DecodeError
		ioErr     *storage.IOError
	)
	switch {
	case errors.As(err, &patchErr):
		if patchErr.Kind == patch.ObjectNotFound {
			return dto.NotFound("document").Wrap(err)
		}
		details := map[string]any{"kind": patchErr.Kind.String()}
		if patchErr.Index >= 0 {
			details["index"] = patchErr.Index
		}
		if patchErr.Path != "" {
			details["path"] = patchErr.Path
		}
		return dto.NewAPIError(http.StatusBadRequest, dto.ErrorCodePatchFailed, patchErr.Error()).
			WithDetails(details).Wrap(err)
	case errors.Is(err, storage.ErrNotFound):
		return dto.NotFound("document").Wrap(err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return dto.AlreadyExists("document").Wrap(err)
	case errors.Is(err, filter.ErrInvalid):
		return dto.NewAPIError(http.StatusBadRequest, dto.ErrorCodeInvalidFilter, err.Error()).Wrap(err)
	case errors.Is(err, documents.ErrFilterRequired):
		return dto.MissingField("where").Wrap(err)
	case errors.As(err, &decodeErr):
		return dto.Storage("stored document is corrupt", err)
	case errors.As(err, &ioErr):
		return dto.Storage("storage operation failed", err)
	default:
		return dto.InternalWithError("internal error", err)
	}
}
