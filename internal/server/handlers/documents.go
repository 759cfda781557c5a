// Package handlers implements the HTTP handlers of the document API.
//
// Handlers have the signature func(context.Context, *dto.XRequest)
// (*dto.XResponse, error) and are adapted to http.Handler by server.Wrap.
// Service errors are converted to dto.APIError here.
package handlers

import (
	"context"

	"github.com/maruel/jsonstore/internal/documents"
	"github.com/maruel/jsonstore/internal/models"
	"github.com/maruel/jsonstore/internal/server/dto"
)

// DocumentHandler serves /api/json.
type DocumentHandler struct {
	svc *documents.Service
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(svc *documents.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// GetDocument returns a document by id.
func (h *DocumentHandler) GetDocument(ctx context.Context, req *dto.GetDocumentRequest) (*dto.DocumentResponse, error) {
	doc, err := h.svc.Get(ctx, req.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return documentToResponse(doc), nil
}

// CreateDocument stores a new document under a fresh id.
func (h *DocumentHandler) CreateDocument(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.CreateDocumentResponse, error) {
	doc, err := h.svc.Create(ctx, req.Data)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.CreateDocumentResponse{DocumentResponse: *documentToResponse(doc)}, nil
}

// PatchDocument applies add/replace/remove operations in order. Nothing is
// written if any operation fails.
func (h *DocumentHandler) PatchDocument(ctx context.Context, req *dto.PatchDocumentRequest) (*dto.DocumentResponse, error) {
	ops := make([]models.PatchOperation, len(req.Operations))
	for i, op := range req.Operations {
		ops[i] = models.PatchOperation{Op: models.PatchOp(op.Op), Path: op.Path, Value: op.Value}
	}
	doc, err := h.svc.Patch(ctx, req.ID, ops)
	if err != nil {
		return nil, apiError(err)
	}
	return documentToResponse(doc), nil
}

// MergePatchDocument applies an RFC 7386 merge patch.
func (h *DocumentHandler) MergePatchDocument(ctx context.Context, req *dto.MergePatchRequest) (*dto.DocumentResponse, error) {
	doc, err := h.svc.MergePatch(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, apiError(err)
	}
	return documentToResponse(doc), nil
}

// DeleteDocument deletes a document by id.
func (h *DocumentHandler) DeleteDocument(ctx context.Context, req *dto.DeleteDocumentRequest) (*dto.DeleteDocumentResponse, error) {
	if err := h.svc.Delete(ctx, req.ID); err != nil {
		return nil, apiError(err)
	}
	return &dto.DeleteDocumentResponse{}, nil
}

// ListDocuments returns the documents matching the optional where filter.
func (h *DocumentHandler) ListDocuments(ctx context.Context, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	docs, err := h.svc.Search(ctx, req.Where)
	if err != nil {
		return nil, apiError(err)
	}
	resp := &dto.ListDocumentsResponse{Documents: make([]dto.DocumentResponse, 0, len(docs)), Count: len(docs)}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, *documentToResponse(doc))
	}
	return resp, nil
}

// DeleteWhere deletes the documents matching the where filter.
func (h *DocumentHandler) DeleteWhere(ctx context.Context, req *dto.DeleteWhereRequest) (*dto.DeleteWhereResponse, error) {
	n, err := h.svc.DeleteWhere(ctx, req.Where)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.DeleteWhereResponse{Deleted: n}, nil
}

// CountDocuments returns the number of stored documents.
func (h *DocumentHandler) CountDocuments(ctx context.Context, req *dto.CountRequest) (*dto.CountResponse, error) {
	n, err := h.svc.Count(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.CountResponse{Count: n}, nil
}

func documentToResponse(doc *models.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{ID: doc.ID.String(), Data: doc.Fields}
}
