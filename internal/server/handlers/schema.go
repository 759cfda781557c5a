package handlers

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/maruel/jsonstore/internal/server/dto"
)

// SchemaHandler publishes the JSON schemas of the request bodies.
type SchemaHandler struct {
	schemas map[string]*jsonschema.Schema
}

// NewSchemaHandler reflects the request types once.
func NewSchemaHandler() *SchemaHandler {
	r := &jsonschema.Reflector{DoNotReference: true}
	return &SchemaHandler{schemas: map[string]*jsonschema.Schema{
		"create": r.Reflect(&dto.CreateDocumentRequest{}),
		"patch":  r.Reflect(&dto.PatchDocumentRequest{}),
		"merge":  r.Reflect(&dto.MergePatchRequest{}),
	}}
}

// Schema returns the schemas keyed by operation.
func (h *SchemaHandler) Schema(ctx context.Context, req *dto.SchemaRequest) (*dto.SchemaResponse, error) {
	return &dto.SchemaResponse{Schemas: h.schemas}, nil
}
