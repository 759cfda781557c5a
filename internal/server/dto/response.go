// Response types for the document API.

package dto

import (
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/maruel/jsonstore/internal/jsonval"
)

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SchemaResponse lists the JSON schema of each request body, keyed by
// operation name.
type SchemaResponse struct {
	Schemas map[string]*jsonschema.Schema `json:"schemas"`
}

// DocumentResponse is a single document.
type DocumentResponse struct {
	ID   string                   `json:"id"`
	Data map[string]jsonval.Value `json:"data"`
}

// CreateDocumentResponse is the response for POST /api/json.
type CreateDocumentResponse struct {
	DocumentResponse
}

// HTTPStatus returns 201 Created.
func (*CreateDocumentResponse) HTTPStatus() int { return http.StatusCreated }

// Location returns the URL of the new document.
func (r *CreateDocumentResponse) Location() string { return "/api/json/" + r.ID }

// DeleteDocumentResponse is the empty response for DELETE /api/json/{id}.
type DeleteDocumentResponse struct{}

// HTTPStatus returns 204 No Content.
func (*DeleteDocumentResponse) HTTPStatus() int { return http.StatusNoContent }

// ListDocumentsResponse is the response for GET /api/json.
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

// DeleteWhereResponse is the response for DELETE /api/json.
type DeleteWhereResponse struct {
	Deleted int `json:"deleted"`
}

// CountResponse is the response for GET /api/json/count.
type CountResponse struct {
	Count int `json:"count"`
}
