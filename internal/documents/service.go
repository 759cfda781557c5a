// Package documents composes the storage and patch engines behind the
// operations exposed by the API.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/maruel/jsonstore/internal/filter"
	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/models"
	"github.com/maruel/jsonstore/internal/patch"
	"github.com/maruel/jsonstore/internal/storage"
)

// ErrFilterRequired is returned by DeleteWhere without an expression.
var ErrFilterRequired = errors.New("a filter expression is required")

// Service handles document operations.
type Service struct {
	store   *storage.FileStore
	patches *patch.Engine
}

// NewService creates a new document service.
func NewService(store *storage.FileStore) *Service {
	return &Service{store: store, patches: patch.NewEngine(store)}
}

// Create stores fields as a new document with a fresh id.
func (s *Service) Create(ctx context.Context, fields map[string]jsonval.Value) (*models.Document, error) {
	doc := models.NewDocument(fields)
	if err := s.store.Add(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// Get returns document id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return s.store.Get(ctx, id)
}

// Delete deletes document id, returning storage.ErrNotFound if it does not
// exist.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// Patch applies ops to document id.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, ops []models.PatchOperation) (*models.Document, error) {
	return s.patches.Apply(ctx, id, ops)
}

// MergePatch applies a JSON merge patch to document id.
func (s *Service) MergePatch(ctx context.Context, id uuid.UUID, mergePatch json.RawMessage) (*models.Document, error) {
	return s.patches.MergePatch(ctx, id, mergePatch)
}

// Search returns the documents matching the filter expression where. An
// empty expression matches every document.
func (s *Service) Search(ctx context.Context, where string) ([]*models.Document, error) {
	pred, err := compile(where)
	if errors.Is(err, filter.ErrEmpty) {
		pred = func(*models.Document) (bool, error) { return true, nil }
	} else if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, pred)
}

// DeleteWhere deletes the documents matching the filter expression where and
// returns how many were deleted.
func (s *Service) DeleteWhere(ctx context.Context, where string) (int, error) {
	pred, err := compile(where)
	if errors.Is(err, filter.ErrEmpty) {
		return 0, ErrFilterRequired
	} else if err != nil {
		return 0, err
	}
	return s.store.DeleteWhere(ctx, pred)
}

// Count returns the number of stored documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func compile(where string) (storage.Predicate, error) {
	e, err := filter.Compile(where)
	if err != nil {
		return nil, err
	}
	return e.Predicate(), nil
}
