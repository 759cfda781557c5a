// Request types for the document API.

package dto

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/maruel/jsonstore/internal/jsonval"
)

// HealthRequest is the request for GET /api/health.
type HealthRequest struct{}

// Validate implements Validatable.
func (*HealthRequest) Validate() error { return nil }

// SchemaRequest is the request for GET /api/schema.
type SchemaRequest struct{}

// Validate implements Validatable.
func (*SchemaRequest) Validate() error { return nil }

// CountRequest is the request for GET /api/json/count.
type CountRequest struct{}

// Validate implements Validatable.
func (*CountRequest) Validate() error { return nil }

// CreateDocumentRequest is the request for POST /api/json.
type CreateDocumentRequest struct {
	Data map[string]jsonval.Value `json:"data" jsonschema:"required"`
}

// Validate implements Validatable.
func (r *CreateDocumentRequest) Validate() error {
	if r.Data == nil {
		return MissingField("data")
	}
	return nil
}

// GetDocumentRequest is the request for GET /api/json/{id}.
type GetDocumentRequest struct {
	ID uuid.UUID `path:"id" json:"-"`
}

// Validate implements Validatable.
func (r *GetDocumentRequest) Validate() error { return validateID(r.ID) }

// DeleteDocumentRequest is the request for DELETE /api/json/{id}.
type DeleteDocumentRequest struct {
	ID uuid.UUID `path:"id" json:"-"`
}

// Validate implements Validatable.
func (r *DeleteDocumentRequest) Validate() error { return validateID(r.ID) }

// PatchOperation is one operation of a patch request.
type PatchOperation struct {
	Op    string        `json:"op" jsonschema:"enum=add,enum=replace,enum=remove"`
	Path  string        `json:"path"`
	Value jsonval.Value `json:"value,omitzero"`
}

// PatchDocumentRequest is the request for PATCH /api/json/{id}.
type PatchDocumentRequest struct {
	ID         uuid.UUID        `path:"id" json:"-"`
	Operations []PatchOperation `json:"operations" jsonschema:"required"`
}

// Validate implements Validatable.
func (r *PatchDocumentRequest) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	}
	if r.Operations == nil {
		return MissingField("operations")
	}
	return nil
}

// MergePatchRequest is the request for PATCH /api/json/{id}/merge.
type MergePatchRequest struct {
	ID    uuid.UUID       `path:"id" json:"-"`
	Patch json.RawMessage `json:"patch" jsonschema:"required"`
}

// Validate implements Validatable.
func (r *MergePatchRequest) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	}
	if len(r.Patch) == 0 {
		return MissingField("patch")
	}
	return nil
}

// ListDocumentsRequest is the request for GET /api/json. Where is an optional
// filter expression.
type ListDocumentsRequest struct {
	Where string `query:"where" json:"-"`
}

// Validate implements Validatable.
func (*ListDocumentsRequest) Validate() error { return nil }

// DeleteWhereRequest is the request for DELETE /api/json.
type DeleteWhereRequest struct {
	Where string `query:"where" json:"-"`
}

// Validate implements Validatable.
func (r *DeleteWhereRequest) Validate() error {
	if strings.TrimSpace(r.Where) == "" {
		return MissingField("where")
	}
	return nil
}
